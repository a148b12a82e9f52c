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

func redditSource() domain.Source {
	return domain.Source{Handle: "worldnews", Platform: domain.PlatformReddit, Region: "global"}
}

func redditChild(name string, createdUTC int64) string {
	return fmt.Sprintf(`{"data":{"name":%q,"title":"headline","selftext":"","url":"https://example.com/a","permalink":"/r/worldnews/comments/%s/","created_utc":%d}}`,
		name, name, createdUTC)
}

func TestRedditAdapter_FetchPagesWithAfter(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	var pages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		assert.Equal(t, "/r/worldnews/new.json", r.URL.Path)
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprintf(w, `{"data":{"after":"t3_b","children":[%s]}}`, redditChild("t3_a", now.Add(-time.Minute).Unix()))
		case "t3_b":
			fmt.Fprintf(w, `{"data":{"after":"","children":[%s]}}`, redditChild("t3_b", now.Add(-2*time.Minute).Unix()))
		}
	}))
	defer server.Close()

	a := NewRedditAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), redditSource(), now.Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, pages)
	assert.Equal(t, "reddit:t3_a", items[0].ID)
	assert.Equal(t, "https://www.reddit.com/r/worldnews/comments/t3_a/", items[0].Link)
}

func TestRedditAdapter_StopsAtCutoff(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"after":"more","children":[%s,%s]}}`,
			redditChild("t3_fresh", now.Add(-time.Minute).Unix()),
			redditChild("t3_old", now.Add(-3*time.Hour).Unix()),
		)
	}))
	defer server.Close()

	a := NewRedditAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), redditSource(), now.Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "reddit:t3_fresh", items[0].ID)
}

func TestRedditAdapter_EmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"after":"","children":[]}}`)
	}))
	defer server.Close()

	a := NewRedditAdapter(testDeps(server))
	a.baseURL = server.URL

	items, err := a.Fetch(context.Background(), redditSource(), time.Now().Add(-time.Hour))

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedditAdapter_BannedSubreddit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	a := NewRedditAdapter(testDeps(server))
	a.baseURL = server.URL

	_, err := a.Fetch(context.Background(), redditSource(), time.Now().Add(-time.Hour))

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	var srcErr *domain.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "reddit:worldnews", srcErr.SourceID)
}
