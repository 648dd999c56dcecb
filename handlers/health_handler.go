package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gizmodojp/line-contact-api/types"
)

// HealthHandler serves liveness and informational endpoints.
type HealthHandler struct {
	appName string
	version string
}

func NewHealthHandler(appName, version string) *HealthHandler {
	return &HealthHandler{
		appName: appName,
		version: version,
	}
}

// HealthCheck reports process liveness. It performs no dependency checks:
// a live process answers 200 even when collaborators are degraded.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, types.StatusResponse{Status: "ok"})
}

// Root returns basic application info for smoke checks.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, types.AppInfo{
		Name:    h.appName,
		Version: h.version,
		Status:  "running",
	})
}
