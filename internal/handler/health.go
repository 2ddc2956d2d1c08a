package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"absensi/internal/response"
)

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, http.StatusOK, "Server is running", nil)
}

// Healthz pings every registered dependency and reports 503 if any is down.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = false
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = true
	}
	c.JSON(status, response.Envelope{Success: status == http.StatusOK, Data: deps})
}
