package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	ready   func() bool
}

func NewHealthHandler(version string, ready func() bool) *HealthHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &HealthHandler{version: version, ready: ready}
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
