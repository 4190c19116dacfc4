package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/query"
	"github.com/lepusmq/lepusmon/internal/middleware"
)

// GetServerAlerts implements GET /v1/servers/:serverID/alerts
// ?vhost=<required>&severity=&category=&resolved=&limit=&offset=
func (api *Api) GetServerAlerts(c *gin.Context) {
	serverID := c.Param("serverID")
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	res, err := api.query.ServerAlerts(c.Request.Context(), middleware.Workspace(c), serverID, f)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetResolvedAlerts implements GET /v1/servers/:serverID/alerts/resolved
func (api *Api) GetResolvedAlerts(c *gin.Context) {
	serverID := c.Param("serverID")
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	res, err := api.query.ResolvedAlerts(c.Request.Context(), middleware.Workspace(c), serverID, f)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetHealthCheck implements GET /v1/servers/:serverID/health
func (api *Api) GetHealthCheck(c *gin.Context) {
	serverID := c.Param("serverID")
	health, err := api.query.HealthCheck(c.Request.Context(), middleware.Workspace(c), serverID)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"health": health})
}

func parseFilter(c *gin.Context) (query.Filter, bool) {
	f := query.Filter{
		VHost: strings.TrimSpace(c.Query("vhost")),
	}
	if sev := strings.TrimSpace(c.Query("severity")); sev != "" {
		s := model.Severity(sev)
		if !s.Valid() {
			fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "severity must be critical, warning or info")
			return query.Filter{}, false
		}
		f.Severity = s
	}
	if cat := strings.TrimSpace(c.Query("category")); cat != "" {
		f.Category = model.Category(cat)
	}
	if res := strings.TrimSpace(c.Query("resolved")); res != "" {
		b, err := strconv.ParseBool(res)
		if err != nil {
			fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "resolved must be a boolean")
			return query.Filter{}, false
		}
		f.Resolved = &b
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be a non-negative integer")
			return query.Filter{}, false
		}
		f.Limit = n
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "INVALID_PARAMETER", "offset must be a non-negative integer")
			return query.Filter{}, false
		}
		f.Offset = n
	}
	return f, true
}
