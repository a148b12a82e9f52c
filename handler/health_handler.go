package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"newspulse/cache"
)

// HealthHandler reports service liveness and persistent-tier reachability.
type HealthHandler struct {
	persistent cache.PersistentStore
	logger     *slog.Logger
}

func NewHealthHandler(persistent cache.PersistentStore, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{persistent: persistent, logger: logger}
}

// Health handles GET /v1/health. A redis outage degrades the service to
// memory-tier-only operation, so it reports "degraded", not failure.
func (h *HealthHandler) Health(c echo.Context) error {
	status := "ok"
	cacheStatus := "disabled"

	if h.persistent != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.persistent.Ping(ctx); err != nil {
			h.logger.Warn("persistent cache unreachable", "error", err)
			status = "degraded"
			cacheStatus = "unreachable"
		} else {
			cacheStatus = "ok"
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":           status,
		"persistent_cache": cacheStatus,
	})
}
