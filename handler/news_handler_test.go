package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspulse/adapter"
	"newspulse/cache"
	"newspulse/config"
	"newspulse/domain"
	"newspulse/fetcher"
	"newspulse/registry"
	"newspulse/service"
	"newspulse/surge"
)

type fixedAdapter struct {
	items []domain.NewsItem
}

func (f *fixedAdapter) Platform() domain.Platform { return domain.PlatformBluesky }

func (f *fixedAdapter) Fetch(context.Context, domain.Source, time.Time) ([]domain.NewsItem, error) {
	return f.items, nil
}

func newTestHandler(t *testing.T, items []domain.NewsItem) *NewsHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg, err := registry.Parse([]byte(`
sources:
  - handle: alerts.example.com
    platform: bluesky
    region: ua
    posts_per_day: 24.5
`))
	require.NoError(t, err)

	cfg := &config.Config{
		Cache: config.CacheConfig{FreshWindow: time.Minute, StaleWindow: 5 * time.Minute},
		Fetch: config.FetchConfig{CallTimeout: 5 * time.Second, AggregateTimeout: 10 * time.Second, WindowHours: 6},
	}

	c := cache.NewService[service.Snapshot](nil, cache.Options{
		FreshWindow: cfg.Cache.FreshWindow,
		StaleWindow: cfg.Cache.StaleWindow,
		Logger:      logger,
	}, func(s service.Snapshot) int { return len(s.Items) })

	f := fetcher.New(map[domain.Platform]adapter.Adapter{
		domain.PlatformBluesky: &fixedAdapter{items: items},
	}, logger, nil)

	svc := service.NewNewsService(reg, f, c, surge.NewDetector(logger), cfg, logger)
	return NewNewsHandler(svc, logger)
}

func serveNews(t *testing.T, h *NewsHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.GetNews(c))
	return rec
}

func TestGetNews_ReturnsItemsAndActivity(t *testing.T) {
	h := newTestHandler(t, []domain.NewsItem{
		{ID: "bluesky:1", Region: "ua", Timestamp: time.Now().UTC().Add(-time.Minute)},
	})

	rec := serveNews(t, h, "/v1/news?window=6")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "bluesky:1", resp.Items[0].ID)
	assert.Contains(t, resp.Activity, surge.AggregateRegion)
	assert.Empty(t, resp.Error)
}

func TestGetNews_BadParameters(t *testing.T) {
	h := newTestHandler(t, nil)
	e := echo.New()

	tests := map[string]string{
		"window not a number": "/v1/news?window=soon",
		"since not rfc3339":   "/v1/news?since=yesterday",
		"refresh not a bool":  "/v1/news?refresh=maybe",
	}

	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := h.GetNews(c)
			require.Error(t, err)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		})
	}
}

func TestGetActivity_OmitsItemPayload(t *testing.T) {
	h := newTestHandler(t, []domain.NewsItem{
		{ID: "bluesky:1", Region: "ua", Timestamp: time.Now().UTC().Add(-time.Minute)},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/activity?window=6", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.GetActivity(c))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "activity")
	assert.Contains(t, body, "fetchedAt")
	assert.NotContains(t, body, "items")
	assert.NotContains(t, body, "error", "a clean aggregate must not carry an empty error key")
}
