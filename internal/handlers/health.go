package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Environment string            `json:"environment"`
}

// Health pings every dependency. Any failure answers 503 so load balancers
// stop routing here.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Checks:      make(map[string]string, len(h.dependencies)),
		Environment: h.cfg.Environment,
	}
	for _, dep := range h.dependencies {
		if err := dep.Pinger.Ping(ctx); err != nil {
			resp.Checks[dep.Name] = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Str("dependency", dep.Name).Msg("health check failed")
			continue
		}
		resp.Checks[dep.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
