// Package handler exposes the HTTP read surface.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"newspulse/domain"
	"newspulse/service"
)

// NewsHandler serves aggregated items and region activity.
type NewsHandler struct {
	news   *service.NewsService
	logger *slog.Logger
}

func NewNewsHandler(news *service.NewsService, logger *slog.Logger) *NewsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsHandler{news: news, logger: logger}
}

// GetNews handles GET /v1/news.
//
// Query parameters: region (filter), window (hours, clamped to 1-72),
// since (RFC3339 watermark for incremental mode), refresh (bypass cache
// freshness, not single-flight).
func (h *NewsHandler) GetNews(c echo.Context) error {
	q := service.Query{Region: c.QueryParam("region")}

	if windowStr := c.QueryParam("window"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid window parameter")
		}
		q.WindowHours = window
	}

	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since parameter, want RFC3339")
		}
		q.Since = since
	}

	if refreshStr := c.QueryParam("refresh"); refreshStr != "" {
		refresh, err := strconv.ParseBool(refreshStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh parameter")
		}
		q.ForceRefresh = refresh
	}

	resp := h.news.GetNews(c.Request().Context(), q)
	return c.JSON(http.StatusOK, resp)
}

// ActivityResponse is the GET /v1/activity payload: the region activity map
// without the item payload.
type ActivityResponse struct {
	Activity  map[string]domain.RegionActivity `json:"activity"`
	FetchedAt time.Time                        `json:"fetchedAt"`
	FromCache bool                             `json:"fromCache"`
	Error     string                           `json:"error,omitempty"`
}

// GetActivity handles GET /v1/activity, for dashboards that only render the
// map layer.
func (h *NewsHandler) GetActivity(c echo.Context) error {
	q := service.Query{}
	if windowStr := c.QueryParam("window"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid window parameter")
		}
		q.WindowHours = window
	}

	resp := h.news.GetNews(c.Request().Context(), q)
	return c.JSON(http.StatusOK, ActivityResponse{
		Activity:  resp.Activity,
		FetchedAt: resp.FetchedAt,
		FromCache: resp.FromCache,
		Error:     resp.Error,
	})
}
