package fetcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspulse/adapter"
	"newspulse/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// stubAdapter scripts Fetch results per handle.
type stubAdapter struct {
	platform domain.Platform

	mu       sync.Mutex
	items    map[string][]domain.NewsItem
	errs     map[string]error
	fetched  []string
	inFlight int
	maxSeen  int
}

func newStubAdapter(platform domain.Platform) *stubAdapter {
	return &stubAdapter{
		platform: platform,
		items:    make(map[string][]domain.NewsItem),
		errs:     make(map[string]error),
	}
}

func (s *stubAdapter) Platform() domain.Platform { return s.platform }

func (s *stubAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, src.Handle)
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond) // let batch-mates overlap

	s.mu.Lock()
	s.inFlight--
	items, err := s.items[src.Handle], s.errs[src.Handle]
	s.mu.Unlock()
	return items, err
}

func item(id, region string, ts time.Time) domain.NewsItem {
	return domain.NewsItem{ID: id, Region: region, Timestamp: ts}
}

func TestFetcher_BatchIsolation(t *testing.T) {
	now := time.Now()
	stub := newStubAdapter(domain.PlatformRSS)
	stub.items["good-1"] = []domain.NewsItem{item("rss:1", "r1", now)}
	stub.items["good-2"] = []domain.NewsItem{item("rss:2", "r1", now)}
	stub.errs["broken"] = domain.NewSourceError("rss:broken", domain.ErrTransientFetch)

	f := New(map[domain.Platform]adapter.Adapter{domain.PlatformRSS: stub}, testLogger(), nil)

	sources := []domain.Source{
		{Handle: "good-1", Platform: domain.PlatformRSS},
		{Handle: "broken", Platform: domain.PlatformRSS},
		{Handle: "good-2", Platform: domain.PlatformRSS},
	}

	items, stats := f.FetchAll(context.Background(), sources, now.Add(-time.Hour))

	assert.Len(t, items, 2, "one failing source must not abort the batch")
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, stats.DeadSources)
}

func TestFetcher_DeadSourceReported(t *testing.T) {
	stub := newStubAdapter(domain.PlatformBluesky)
	stub.errs["ghost"] = domain.NewSourceError("bluesky:ghost", domain.ErrSourceNotFound)

	f := New(map[domain.Platform]adapter.Adapter{domain.PlatformBluesky: stub}, testLogger(), nil)

	_, stats := f.FetchAll(context.Background(), []domain.Source{
		{Handle: "ghost", Platform: domain.PlatformBluesky},
	}, time.Now().Add(-time.Hour))

	require.Len(t, stats.DeadSources, 1)
	assert.Equal(t, "bluesky:ghost", stats.DeadSources[0])
}

func TestFetcher_PartialResultsKeptOnFailure(t *testing.T) {
	now := time.Now()
	stub := newStubAdapter(domain.PlatformReddit)
	stub.items["flaky"] = []domain.NewsItem{item("reddit:t3_1", "r1", now)}
	stub.errs["flaky"] = domain.NewSourceError("reddit:flaky", domain.ErrTransientFetch)

	f := New(map[domain.Platform]adapter.Adapter{domain.PlatformReddit: stub}, testLogger(), nil)

	items, stats := f.FetchAll(context.Background(), []domain.Source{
		{Handle: "flaky", Platform: domain.PlatformReddit},
	}, now.Add(-time.Hour))

	assert.Len(t, items, 1, "pages accumulated before the failure are kept")
	assert.Equal(t, 1, stats.Failed)
}

func TestFetcher_MergeDedupsAndSortsNewestFirst(t *testing.T) {
	now := time.Now()
	stub := newStubAdapter(domain.PlatformRSS)
	stub.items["a"] = []domain.NewsItem{
		item("rss:shared", "r1", now.Add(-2*time.Minute)),
		item("rss:old", "r1", now.Add(-30*time.Minute)),
	}
	stub.items["b"] = []domain.NewsItem{
		item("rss:shared", "r1", now.Add(-2*time.Minute)), // same underlying post
		item("rss:new", "r1", now.Add(-time.Minute)),
	}

	f := New(map[domain.Platform]adapter.Adapter{domain.PlatformRSS: stub}, testLogger(), nil)

	items, _ := f.FetchAll(context.Background(), []domain.Source{
		{Handle: "a", Platform: domain.PlatformRSS},
		{Handle: "b", Platform: domain.PlatformRSS},
	}, now.Add(-time.Hour))

	require.Len(t, items, 3)
	assert.Equal(t, "rss:new", items[0].ID)
	assert.Equal(t, "rss:shared", items[1].ID)
	assert.Equal(t, "rss:old", items[2].ID)
}

func TestFetcher_BatchSizeBoundsConcurrency(t *testing.T) {
	now := time.Now()
	stub := newStubAdapter(domain.PlatformMastodon)

	var sources []domain.Source
	for i := 0; i < 12; i++ {
		handle := "user" + string(rune('a'+i)) + "@server.example"
		stub.items[handle] = nil
		sources = append(sources, domain.Source{Handle: handle, Platform: domain.PlatformMastodon})
	}

	f := New(map[domain.Platform]adapter.Adapter{domain.PlatformMastodon: stub}, testLogger(), nil)
	f.FetchAll(context.Background(), sources, now.Add(-time.Hour))

	assert.Len(t, stub.fetched, 12, "every source is fetched")
	assert.LessOrEqual(t, stub.maxSeen, PlatformOptions(domain.PlatformMastodon).BatchSize,
		"in-flight fetches never exceed the platform batch size")
}

func TestPlatformOptions(t *testing.T) {
	mastodon := PlatformOptions(domain.PlatformMastodon)
	bluesky := PlatformOptions(domain.PlatformBluesky)

	assert.Less(t, mastodon.BatchSize, bluesky.BatchSize,
		"federated servers get smaller batches than single-endpoint APIs")
	assert.Greater(t, mastodon.BatchDelay, bluesky.BatchDelay)
}
