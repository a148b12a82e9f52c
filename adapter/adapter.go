// Package adapter implements per-platform retrieval of recent posts,
// normalized into the common NewsItem shape.
package adapter

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"newspulse/config"
	"newspulse/domain"
	"newspulse/ratelimit"
)

// maxPages caps backward pagination per source so a misbehaving or very
// active source cannot page forever.
const maxPages = 5

// Adapter fetches recent posts for one source. Implementations page
// backward through the source's history until they see a post older than
// cutoff, run out of pages, or hit the page cap.
//
// Errors never abort a batch: on a transient failure mid-pagination the
// items accumulated so far are returned alongside the error, and callers
// keep them. A dead account surfaces as domain.ErrSourceNotFound.
type Adapter interface {
	Platform() domain.Platform
	Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error)
}

// Deps carries the shared plumbing every adapter needs.
type Deps struct {
	Client    *http.Client
	Limiter   *ratelimit.HostLimiter
	Logger    *slog.Logger
	UserAgent string
}

// NewRegistry builds one adapter per platform, selected once at source-load
// time rather than re-dispatched per call.
func NewRegistry(cfg *config.Config, deps Deps) map[domain.Platform]Adapter {
	if deps.Client == nil {
		deps.Client = NewHTTPClient(cfg.Fetch.CallTimeout)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.UserAgent == "" {
		deps.UserAgent = cfg.Fetch.UserAgent
	}

	return map[domain.Platform]Adapter{
		domain.PlatformBluesky:  NewBlueskyAdapter(deps),
		domain.PlatformMastodon: NewMastodonAdapter(deps),
		domain.PlatformTelegram: NewTelegramAdapter(deps, cfg.Telegram),
		domain.PlatformRSS:      NewRSSAdapter(deps),
		domain.PlatformReddit:   NewRedditAdapter(deps),
	}
}

// NewHTTPClient builds the shared outbound client for platform calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
// HTTP statuses are mapped onto the domain error taxonomy.
func (d Deps) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := d.get(ctx, url, header)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return nil
}

// get performs a rate-limited GET and returns the response body on success.
func (d Deps) get(ctx context.Context, url string, header http.Header) (io.ReadCloser, error) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientFetch, err)
	}

	if err := domain.ClassifyStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
