package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, e *echo.Echo, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newLimitedEcho(requestsPerMinute, burst int) *echo.Echo {
	e := echo.New()
	e.Use(NewRateLimiter(requestsPerMinute, burst).Middleware())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	e := newLimitedEcho(60, 3)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, e, "203.0.113.7")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	e := newLimitedEcho(60, 2)

	doRequest(t, e, "203.0.113.7")
	doRequest(t, e, "203.0.113.7")
	rec := doRequest(t, e, "203.0.113.7")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_BudgetsArePerIP(t *testing.T) {
	e := newLimitedEcho(60, 1)

	first := doRequest(t, e, "203.0.113.7")
	blocked := doRequest(t, e, "203.0.113.7")
	other := doRequest(t, e, "198.51.100.9")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, http.StatusOK, other.Code, "a noisy client cannot exhaust another client's budget")
}
