package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/b2bmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthResponse is the health report
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Uptime string            `json:"uptime" example:"1h30m45s"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler reports whether the service and its dependencies are up
type HealthHandler struct {
	BaseHandler
	checks    map[string]HealthCheck
	timeout   time.Duration
	startTime time.Time
}

// NewHealthHandler creates a health handler running checks by name
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		timeout:   2 * time.Second,
		startTime: time.Now(),
	}
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Description  Pings the document store and cache. Answers 503 when one is down.
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
