package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// WorkspaceKey is the gin context key carrying the caller's workspace.
const WorkspaceKey = "workspaceID"

// Authentication resolves the caller's workspace from the
// X-Workspace-ID header and, when LEPUSMON_API_TOKEN is set, requires a
// matching bearer token. Full identity management lives in the gateway
// in front of this service.
func Authentication(c *gin.Context) {
	if token := os.Getenv("LEPUSMON_API_TOKEN"); token != "" {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid or missing token"},
			})
			return
		}
	}
	ws := strings.TrimSpace(c.GetHeader("X-Workspace-ID"))
	if ws == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": "INVALID_PARAMETER", "message": "X-Workspace-ID header is required"},
		})
		return
	}
	c.Set(WorkspaceKey, ws)
	c.Next()
}

// Workspace reads the workspace id set by Authentication.
func Workspace(c *gin.Context) string {
	return c.GetString(WorkspaceKey)
}
