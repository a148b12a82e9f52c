package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"newspulse/metrics"
)

// FetchFunc produces a fresh payload for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result describes how a GetOrFetch call was satisfied.
type Result struct {
	FetchedAt time.Time `json:"fetchedAt"`
	FromCache bool      `json:"fromCache"`
	// Degraded marks a response served from an expired entry because the
	// refresh failed. Availability over strict freshness.
	Degraded bool `json:"degraded,omitempty"`
}

// Options configures a cache service.
type Options struct {
	FreshWindow time.Duration
	StaleWindow time.Duration
	// RefreshTimeout bounds a background stale-refresh, which runs detached
	// from the request that triggered it.
	RefreshTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// CountFunc reports the item count recorded alongside a stored payload.
type CountFunc[T any] func(T) int

// Service is the dual-tier cache orchestrator. It is constructed once at
// startup and handed to every consumer; there are no hidden package-level
// statics.
type Service[T any] struct {
	mem        *MemoryStore[T]
	persistent PersistentStore
	opts       Options
	count      CountFunc[T]

	group singleflight.Group

	// now is swapped in tests.
	now func() time.Time
}

// NewService builds a cache service. persistent may be nil, in which case
// the service runs on the process-local tier only. count may be nil when
// the payload has no meaningful item count.
func NewService[T any](persistent PersistentStore, opts Options, count CountFunc[T]) *Service[T] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = time.Minute
	}
	return &Service[T]{
		mem:        NewMemoryStore[T](),
		persistent: persistent,
		opts:       opts,
		count:      count,
		now:        time.Now,
	}
}

// Get returns the cached value for key if one exists within the
// stale-but-usable window. Expired entries are reported as not found.
func (s *Service[T]) Get(ctx context.Context, key string) (T, bool) {
	entry, _, ok := s.lookup(ctx, key)
	if !ok || entry.StateAt(s.now(), s.opts.FreshWindow, s.opts.StaleWindow) == StateExpired {
		var zero T
		return zero, false
	}
	return entry.Payload, true
}

// Set writes value to both tiers, superseding any previous entry.
func (s *Service[T]) Set(ctx context.Context, key string, value T) Entry[T] {
	entry := Entry[T]{
		Payload:   value,
		FetchedAt: s.now(),
	}
	if s.count != nil {
		entry.ItemCount = s.count(value)
	}
	s.mem.Set(key, entry)

	if s.persistent != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			s.opts.Logger.Error("failed to serialize cache entry", "key", key, "error", err)
			return entry
		}
		// Retain past the stale window so cold instances can still use the
		// entry as a degraded fallback.
		ttl := s.opts.StaleWindow * 4
		if err := s.persistent.Set(ctx, key, data, ttl); err != nil {
			s.opts.Logger.Warn("persistent cache write failed", "key", key, "error", err)
		}
	}
	return entry
}

// GetOrFetch returns fresh or stale-but-usable data immediately, calling
// fetch only when necessary. forceRefresh bypasses the freshness check but
// not single-flight deduplication.
func (s *Service[T]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[T], forceRefresh bool) (T, Result, error) {
	entry, tier, found := s.lookup(ctx, key)

	if found && !forceRefresh {
		switch state := entry.StateAt(s.now(), s.opts.FreshWindow, s.opts.StaleWindow); state {
		case StateFresh:
			s.recordHit(tier, state)
			return entry.Payload, Result{FetchedAt: entry.FetchedAt, FromCache: true}, nil
		case StateStale:
			s.recordHit(tier, state)
			s.refreshInBackground(key, fetch)
			return entry.Payload, Result{FetchedAt: entry.FetchedAt, FromCache: true}, nil
		}
	}

	if s.opts.Metrics != nil && !found {
		s.opts.Metrics.CacheMisses.Inc()
	}

	fetched, err, _ := s.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return s.Set(ctx, key, value), nil
	})
	if err != nil {
		if found {
			// Expired (or force-bypassed) data beats no data.
			s.opts.Logger.Warn("fetch failed, serving degraded cache entry",
				"key", key, "age", s.now().Sub(entry.FetchedAt), "error", err)
			if s.opts.Metrics != nil {
				s.opts.Metrics.CacheDegraded.Inc()
			}
			return entry.Payload, Result{FetchedAt: entry.FetchedAt, FromCache: true, Degraded: true}, nil
		}
		var zero T
		return zero, Result{}, err
	}

	fresh := fetched.(Entry[T])
	return fresh.Payload, Result{FetchedAt: fresh.FetchedAt}, nil
}

// refreshInBackground starts a refresh for key unless one is already in
// flight; callers never wait on it. The refresh runs under its own timeout,
// detached from the triggering request.
func (s *Service[T]) refreshInBackground(key string, fetch FetchFunc[T]) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefreshTimeout)
		defer cancel()

		_, err, shared := s.group.Do(key, func() (any, error) {
			value, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			return s.Set(ctx, key, value), nil
		})
		if err != nil {
			s.opts.Logger.Warn("background refresh failed", "key", key, "error", err)
			return
		}
		if !shared {
			s.opts.Logger.Debug("background refresh completed", "key", key)
		}
	}()
}

// lookup checks the process-local tier first, then the persistent tier,
// backfilling the local tier on a persistent hit.
func (s *Service[T]) lookup(ctx context.Context, key string) (Entry[T], string, bool) {
	if entry, ok := s.mem.Get(key); ok {
		return entry, "memory", true
	}

	if s.persistent == nil {
		return Entry[T]{}, "", false
	}

	data, err := s.persistent.Get(ctx, key)
	if err != nil {
		// Persistent tier outage degrades to memory-only operation.
		s.opts.Logger.Warn("persistent cache read failed", "key", key, "error", err)
		return Entry[T]{}, "", false
	}
	if data == nil {
		return Entry[T]{}, "", false
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		s.opts.Logger.Warn("discarding corrupt persistent cache entry", "key", key, "error", err)
		return Entry[T]{}, "", false
	}

	s.mem.Set(key, entry)
	return entry, "persistent", true
}

func (s *Service[T]) recordHit(tier string, state State) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.CacheHits.WithLabelValues(tier, state.String()).Inc()
	}
}
