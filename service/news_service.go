// Package service orchestrates the fetch pipeline behind the read API:
// registry -> batched fetcher -> cache, with activity assessment derived
// from whatever item set a request ends up being served.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspulse/cache"
	"newspulse/config"
	"newspulse/domain"
	"newspulse/fetcher"
	"newspulse/registry"
	"newspulse/surge"
)

// Window clamp for the read path.
const (
	minWindowHours = 1
	maxWindowHours = 72
)

// Snapshot is the cached unit: one full fetch cycle's merged items plus its
// statistics.
type Snapshot struct {
	Items []domain.NewsItem `json:"items"`
	Stats fetcher.Stats     `json:"stats"`
}

// Query are the read-path parameters.
type Query struct {
	// Region filters returned items; empty means all regions.
	Region string
	// WindowHours is the lookback window, clamped to [1, 72].
	WindowHours int
	// Since enables incremental mode: only items newer than the watermark.
	Since time.Time
	// ForceRefresh bypasses cache freshness checks (not single-flight).
	ForceRefresh bool
}

// Response is the read-path result shape. On total failure it is still a
// valid shape with Error set, so clients render "no data yet" instead of
// crashing on an HTTP error.
type Response struct {
	Items     []domain.NewsItem                `json:"items"`
	Activity  map[string]domain.RegionActivity `json:"activity"`
	FetchedAt time.Time                        `json:"fetchedAt"`
	FromCache bool                             `json:"fromCache"`
	Degraded  bool                             `json:"degraded,omitempty"`
	Stats     fetcher.Stats                    `json:"stats"`
	Error     string                           `json:"error,omitempty"`
}

// NewsService is constructed once at startup and handed to the handlers.
type NewsService struct {
	registry *registry.Registry
	fetcher  *fetcher.Fetcher
	cache    *cache.Service[Snapshot]
	detector *surge.Detector
	cfg      *config.Config
	logger   *slog.Logger
}

func NewNewsService(
	reg *registry.Registry,
	f *fetcher.Fetcher,
	c *cache.Service[Snapshot],
	detector *surge.Detector,
	cfg *config.Config,
	logger *slog.Logger,
) *NewsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsService{
		registry: reg,
		fetcher:  f,
		cache:    c,
		detector: detector,
		cfg:      cfg,
		logger:   logger,
	}
}

// GetNews serves the query from cache or a fresh fetch cycle, attaching a
// region activity assessment computed from the served item set.
func (s *NewsService) GetNews(ctx context.Context, q Query) Response {
	windowHours := clampWindow(q.WindowHours)
	window := time.Duration(windowHours) * time.Hour
	key := fmt.Sprintf("news:all:%dh", windowHours)

	snapshot, result, err := s.cache.GetOrFetch(ctx, key, s.fetchCycle(window), q.ForceRefresh)
	if err != nil {
		// Total failure with nothing cached: degraded-but-valid shape.
		s.logger.Error("fetch cycle failed with no usable cache entry", "key", key, "error", err)
		return Response{
			Items:    []domain.NewsItem{},
			Activity: map[string]domain.RegionActivity{},
			Error:    err.Error(),
		}
	}

	activity := s.detector.Assess(snapshot.Items, s.registry.Sources(), window)

	items := snapshot.Items
	if q.Region != "" {
		items = filterRegion(items, q.Region)
	}
	items = domain.ItemsSince(items, q.Since)

	return Response{
		Items:     items,
		Activity:  activity,
		FetchedAt: result.FetchedAt,
		FromCache: result.FromCache,
		Degraded:  result.Degraded,
		Stats:     snapshot.Stats,
	}
}

// fetchCycle builds the cache fetch function for one window. A cycle where
// zero sources succeed and nothing was accumulated is the only error case;
// partial data is a success.
func (s *NewsService) fetchCycle(window time.Duration) cache.FetchFunc[Snapshot] {
	return func(ctx context.Context) (Snapshot, error) {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Fetch.AggregateTimeout)
		defer cancel()

		sources := s.registry.Sources()
		cutoff := time.Now().Add(-window)
		items, stats := s.fetcher.FetchAll(ctx, sources, cutoff)

		if stats.Succeeded == 0 && len(items) == 0 && len(sources) > 0 {
			return Snapshot{}, fmt.Errorf("%w: all %d sources failed", domain.ErrTransientFetch, len(sources))
		}
		return Snapshot{Items: items, Stats: stats}, nil
	}
}

// RunPrewarm keeps the default cache key warm on a timer until ctx ends.
func (s *NewsService) RunPrewarm(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("cache prewarm loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cache prewarm loop stopped")
			return
		case <-ticker.C:
			resp := s.GetNews(ctx, Query{WindowHours: s.cfg.Fetch.WindowHours})
			if resp.Error != "" {
				s.logger.Warn("prewarm cycle failed", "error", resp.Error)
			}
		}
	}
}

func clampWindow(hours int) int {
	if hours < minWindowHours {
		if hours == 0 {
			return 6
		}
		return minWindowHours
	}
	if hours > maxWindowHours {
		return maxWindowHours
	}
	return hours
}

func filterRegion(items []domain.NewsItem, region string) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if item.Region == region {
			out = append(out, item)
		}
	}
	return out
}
