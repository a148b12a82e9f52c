package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"newspulse/cache"
	"newspulse/config"
	"newspulse/middleware"
	"newspulse/service"
)

// NewRouter wires the echo instance: middleware chain, read surface,
// health, and metrics.
func NewRouter(cfg *config.Config, news *service.NewsService, persistent cache.PersistentStore, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.Telemetry.Enabled() {
		e.Use(otelecho.Middleware(cfg.Log.ServiceName))
	}
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.LoggingMiddleware(logger))

	newsHandler := NewNewsHandler(news, logger)
	healthHandler := NewHealthHandler(persistent, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	v1 := e.Group("/v1", limiter.Middleware())
	v1.GET("/news", newsHandler.GetNews)
	v1.GET("/activity", newsHandler.GetActivity)

	e.GET("/v1/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
