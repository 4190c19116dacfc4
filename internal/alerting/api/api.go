// Package api exposes the alerting core over HTTP: alert views, health
// probes, threshold and notification-settings management.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/query"
	"github.com/lepusmq/lepusmon/internal/alerting/service/settings"
	"github.com/lepusmq/lepusmon/internal/alerting/service/threshold"
)

type Api struct {
	query      *query.Service
	thresholds *threshold.Store
	settings   *settings.Store
}

func NewApi(router *gin.Engine, q *query.Service, t *threshold.Store, s *settings.Store) *Api {
	api := &Api{query: q, thresholds: t, settings: s}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	v1 := router.Group("/v1")
	v1.GET("/servers/:serverID/alerts", api.GetServerAlerts)
	v1.GET("/servers/:serverID/alerts/resolved", api.GetResolvedAlerts)
	v1.GET("/servers/:serverID/health", api.GetHealthCheck)
	v1.GET("/thresholds", api.GetThresholds)
	v1.PUT("/thresholds", api.UpdateThresholds)
	v1.GET("/alert-settings", api.GetAlertSettings)
	v1.PUT("/alert-settings", api.UpdateAlertSettings)
	v1.GET("/channels", api.ListChannels)
	v1.PUT("/channels", api.SaveChannel)
	v1.DELETE("/channels/:channelID", api.DeleteChannel)
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

// failFromError maps the service error taxonomy onto HTTP statuses.
func failFromError(c *gin.Context, err error) {
	var tve *model.ValidationError
	var sve *settings.ValidationError
	switch {
	case errors.As(err, &tve):
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", tve.Error())
	case errors.As(err, &sve):
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", sve.Error())
	case errors.Is(err, query.ErrVHostRequired):
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "vhost is required")
	case errors.Is(err, threshold.ErrPermission):
		fail(c, http.StatusForbidden, "FORBIDDEN", "plan does not allow threshold changes")
	case errors.Is(err, settings.ErrPermission):
		fail(c, http.StatusForbidden, "FORBIDDEN", "only the workspace owner may change notification settings")
	case errors.Is(err, query.ErrNotFound), errors.Is(err, settings.ErrChannelNotFound):
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
