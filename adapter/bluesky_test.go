package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspulse/domain"
)

func testDeps(server *httptest.Server) Deps {
	return Deps{
		Client:    server.Client(),
		UserAgent: "newspulse-test",
	}
}

func blueskySource() domain.Source {
	return domain.Source{Handle: "alerts.example.com", Platform: domain.PlatformBluesky, Region: "r1"}
}

func blueskyPost(uri string, createdAt time.Time) string {
	return fmt.Sprintf(`{"post":{"uri":%q,"author":{"handle":"alerts.example.com"},"record":{"text":"post body","createdAt":%q}}}`,
		uri, createdAt.Format(time.RFC3339))
}

func TestBlueskyAdapter_FetchStopsAtCutoff(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	cutoff := now.Add(-time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getAuthorFeed", r.URL.Path)
		assert.Equal(t, "alerts.example.com", r.URL.Query().Get("actor"))

		fmt.Fprintf(w, `{"cursor":"next","feed":[%s,%s,%s]}`,
			blueskyPost("at://did:plc:x/app.bsky.feed.post/3", now.Add(-10*time.Minute)),
			blueskyPost("at://did:plc:x/app.bsky.feed.post/2", now.Add(-30*time.Minute)),
			blueskyPost("at://did:plc:x/app.bsky.feed.post/1", now.Add(-2*time.Hour)), // past cutoff
		)
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), blueskySource(), cutoff)

	require.NoError(t, err)
	require.Len(t, items, 2, "pagination stops at the first too-old post")
	assert.Equal(t, "bluesky:at://did:plc:x/app.bsky.feed.post/3", items[0].ID)
	assert.Equal(t, "https://bsky.app/profile/alerts.example.com/post/3", items[0].Link)
	assert.Equal(t, "r1", items[0].Region)
}

func TestBlueskyAdapter_FetchFollowsCursor(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	var pages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprintf(w, `{"cursor":"p2","feed":[%s]}`, blueskyPost("at://x/p/2", now.Add(-time.Minute)))
		case "p2":
			fmt.Fprintf(w, `{"cursor":"","feed":[%s]}`, blueskyPost("at://x/p/1", now.Add(-2*time.Minute)))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), blueskySource(), now.Add(-time.Hour))

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, pages)
}

func TestBlueskyAdapter_PageCap(t *testing.T) {
	now := time.Now().UTC()
	var pages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Always another page of in-window posts.
		fmt.Fprintf(w, `{"cursor":"c%d","feed":[%s]}`, pages, blueskyPost(fmt.Sprintf("at://x/p/%d", pages), now))
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), blueskySource(), now.Add(-time.Hour))

	require.NoError(t, err)
	assert.Equal(t, maxPages, pages, "a misbehaving source cannot trigger unbounded pagination")
	assert.Len(t, items, maxPages)
}

func TestBlueskyAdapter_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"InvalidRequest","message":"Profile not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	_, err := a.Fetch(context.Background(), blueskySource(), time.Now().Add(-time.Hour))

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err), "account-style 400 must surface as not-found")
}

func TestBlueskyAdapter_TransientFailureKeepsPartialPages(t *testing.T) {
	now := time.Now().UTC()
	var pages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if pages == 1 {
			fmt.Fprintf(w, `{"cursor":"p2","feed":[%s]}`, blueskyPost("at://x/p/1", now))
			return
		}
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), blueskySource(), now.Add(-time.Hour))

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Len(t, items, 1, "partial data beats no data")
}

func TestBlueskyAdapter_StableIDsAcrossFetches(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"cursor":"","feed":[%s]}`, blueskyPost("at://x/p/42", now.Add(-time.Minute)))
	}))
	defer server.Close()

	a := NewBlueskyAdapter(testDeps(server))
	a.baseURL = server.URL

	first, err := a.Fetch(context.Background(), blueskySource(), now.Add(-time.Hour))
	require.NoError(t, err)
	second, err := a.Fetch(context.Background(), blueskySource(), now.Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID, "re-fetching the same post must yield the same id")
}
