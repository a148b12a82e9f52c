// Package fetcher drives lists of sources through their platform adapters
// with platform-specific batching. Batch size and inter-batch delay are the
// load-shedding mechanism: full-parallel fetching trips platform rate
// limits, fully-sequential fetching is too slow for a dashboard cycle.
package fetcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newspulse/adapter"
	"newspulse/domain"
	"newspulse/metrics"
)

// Options are per-platform batching knobs.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
}

// PlatformOptions returns the tuned batching parameters for a platform.
// Federated servers get small batches with long delays because every origin
// enforces its own per-IP limits; single-endpoint APIs tolerate much more.
func PlatformOptions(p domain.Platform) Options {
	switch p {
	case domain.PlatformMastodon:
		return Options{BatchSize: 4, BatchDelay: 300 * time.Millisecond}
	case domain.PlatformBluesky:
		return Options{BatchSize: 25, BatchDelay: 75 * time.Millisecond}
	case domain.PlatformTelegram:
		return Options{BatchSize: 8, BatchDelay: 150 * time.Millisecond}
	case domain.PlatformReddit:
		return Options{BatchSize: 15, BatchDelay: 100 * time.Millisecond}
	default:
		return Options{BatchSize: 10, BatchDelay: 100 * time.Millisecond}
	}
}

// Stats summarizes one fetch cycle.
type Stats struct {
	Sources   int      `json:"sources"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	// DeadSources are sources that returned a definitive not-found
	// response, surfaced for registry maintenance.
	DeadSources []string `json:"deadSources,omitempty"`
}

// Fetcher fans sources out to their adapters.
type Fetcher struct {
	adapters map[domain.Platform]adapter.Adapter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(adapters map[domain.Platform]adapter.Adapter, logger *slog.Logger, m *metrics.Metrics) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{adapters: adapters, logger: logger, metrics: m}
}

type sourceResult struct {
	source domain.Source
	items  []domain.NewsItem
	err    error
}

// FetchAll fetches every source, isolating per-source failures, and returns
// the merged item list deduplicated by id and sorted newest first. A failed
// source contributes whatever partial pages its adapter accumulated.
func (f *Fetcher) FetchAll(ctx context.Context, sources []domain.Source, cutoff time.Time) ([]domain.NewsItem, Stats) {
	grouped := make(map[domain.Platform][]domain.Source)
	for _, src := range sources {
		grouped[src.Platform] = append(grouped[src.Platform], src)
	}

	resultCh := make(chan sourceResult, len(sources))

	var wg sync.WaitGroup
	for platform, platformSources := range grouped {
		ad, ok := f.adapters[platform]
		if !ok {
			f.logger.Warn("no adapter registered for platform", "platform", platform)
			continue
		}
		wg.Add(1)
		go func(ad adapter.Adapter, platformSources []domain.Source) {
			defer wg.Done()
			f.fetchPlatform(ctx, ad, platformSources, cutoff, resultCh)
		}(ad, platformSources)
	}
	wg.Wait()
	close(resultCh)

	stats := Stats{Sources: len(sources)}
	var merged []domain.NewsItem
	for res := range resultCh {
		merged = append(merged, res.items...)
		if res.err != nil {
			stats.Failed++
			if domain.IsNotFound(res.err) {
				stats.DeadSources = append(stats.DeadSources, res.source.ID())
			}
			continue
		}
		stats.Succeeded++
	}

	merged = domain.DedupByID(merged)
	domain.SortNewestFirst(merged)

	f.logger.Info("fetch cycle completed",
		"sources", stats.Sources,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"dead_sources", len(stats.DeadSources),
		"items", len(merged))

	return merged, stats
}

// fetchPlatform walks one platform's sources in sequential batches,
// fetching concurrently within a batch and sleeping between batches.
func (f *Fetcher) fetchPlatform(ctx context.Context, ad adapter.Adapter, sources []domain.Source, cutoff time.Time, out chan<- sourceResult) {
	opts := PlatformOptions(ad.Platform())

	for start := 0; start < len(sources); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(sources))
		batch := sources[start:end]

		var wg sync.WaitGroup
		for _, src := range batch {
			wg.Add(1)
			go func(src domain.Source) {
				defer wg.Done()
				out <- f.fetchSource(ctx, ad, src, cutoff)
			}(src)
		}
		wg.Wait()

		if end < len(sources) {
			select {
			case <-time.After(opts.BatchDelay):
			case <-ctx.Done():
				// Remaining sources are reported as transient failures so
				// the cycle's stats stay honest.
				for _, src := range sources[end:] {
					out <- sourceResult{source: src, err: domain.NewSourceError(src.ID(), domain.ErrTransientFetch)}
				}
				return
			}
		}
	}
}

func (f *Fetcher) fetchSource(ctx context.Context, ad adapter.Adapter, src domain.Source, cutoff time.Time) sourceResult {
	start := time.Now()
	items, err := ad.Fetch(ctx, src, cutoff)
	elapsed := time.Since(start)

	platform := string(ad.Platform())
	if f.metrics != nil {
		f.metrics.FetchDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
		f.metrics.FetchItems.WithLabelValues(platform).Add(float64(len(items)))
	}

	if err != nil {
		if f.metrics != nil {
			f.metrics.FetchFailures.WithLabelValues(platform).Inc()
			if domain.IsNotFound(err) {
				f.metrics.DeadSources.WithLabelValues(platform).Inc()
			}
		}
		f.logger.Error("source fetch failed",
			"source", src.ID(),
			"partial_items", len(items),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return sourceResult{source: src, items: items, err: err}
	}

	f.logger.Debug("source fetched",
		"source", src.ID(),
		"items", len(items),
		"duration_ms", elapsed.Milliseconds())
	return sourceResult{source: src, items: items}
}
