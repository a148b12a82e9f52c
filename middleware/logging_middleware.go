package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// LoggingMiddleware emits one structured access log line per request.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			logger.Info("request completed",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"ip_address", c.RealIP(),
				"request_id", RequestID(c),
				"duration_ms", time.Since(start).Milliseconds())

			return err
		}
	}
}
