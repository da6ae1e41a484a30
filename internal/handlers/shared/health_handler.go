package shared

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

// NewHealthHandler takes one ping per dependency, keyed by name.
func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":  map[bool]string{true: "healthy", false: "degraded"}[status == http.StatusOK],
		"version": utils.AppVersion,
		"checks":  results,
	})
}
