package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/middleware"
	"github.com/rs/zerolog/log"
)

// GetThresholds implements GET /v1/thresholds: the effective
// (defaults plus overrides) threshold set for the caller's workspace,
// the system defaults, and whether the workspace plan allows edits.
func (api *Api) GetThresholds(c *gin.Context) {
	ws := middleware.Workspace(c)
	t := api.thresholds.GetThresholds(c.Request.Context(), ws)
	canModify, err := api.thresholds.CanModify(c.Request.Context(), ws)
	if err != nil {
		log.Warn().Err(err).Str("workspace", ws).Msg("plan gate check failed, reporting read-only")
		canModify = false
	}
	c.JSON(http.StatusOK, map[string]any{
		"thresholds": t,
		"canModify":  canModify,
		"defaults":   api.thresholds.Defaults(),
	})
}

// UpdateThresholds implements PUT /v1/thresholds. The body is a partial
// ThresholdSet; present fields overlay the stored overrides and the
// merged result is validated before persisting.
func (api *Api) UpdateThresholds(c *gin.Context) {
	var patch model.ThresholdSet
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "request body must be a threshold document")
		return
	}
	effective, err := api.thresholds.UpdateThresholds(c.Request.Context(), middleware.Workspace(c), patch)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"message": "thresholds updated", "thresholds": effective})
}
