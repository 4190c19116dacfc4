package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/middleware"
)

// GetAlertSettings implements GET /v1/alert-settings.
func (api *Api) GetAlertSettings(c *gin.Context) {
	s, err := api.settings.GetSettings(c.Request.Context(), middleware.Workspace(c))
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"settings": s})
}

// UpdateAlertSettings implements PUT /v1/alert-settings with a full
// settings document.
func (api *Api) UpdateAlertSettings(c *gin.Context) {
	var in model.NotificationSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "request body must be a settings document")
		return
	}
	saved, err := api.settings.UpdateSettings(c.Request.Context(), middleware.Workspace(c), in)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"settings": saved})
}

// ListChannels implements GET /v1/channels.
func (api *Api) ListChannels(c *gin.Context) {
	channels, err := api.settings.ListChannels(c.Request.Context(), middleware.Workspace(c))
	if err != nil {
		failFromError(c, err)
		return
	}
	if channels == nil {
		channels = []model.ChannelConfig{}
	}
	c.JSON(http.StatusOK, map[string]any{"channels": channels})
}

// SaveChannel implements PUT /v1/channels: create when the body has no
// id, update otherwise. The workspace always comes from the caller,
// never the body.
func (api *Api) SaveChannel(c *gin.Context) {
	var in model.ChannelConfig
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "request body must be a channel document")
		return
	}
	in.WorkspaceID = middleware.Workspace(c)
	saved, err := api.settings.SaveChannel(c.Request.Context(), in)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"channel": saved})
}

// DeleteChannel implements DELETE /v1/channels/:channelID.
func (api *Api) DeleteChannel(c *gin.Context) {
	if err := api.settings.DeleteChannel(c.Request.Context(), middleware.Workspace(c), c.Param("channelID")); err != nil {
		failFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
