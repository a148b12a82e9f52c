package adapter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"newspulse/domain"
)

const blueskyAPIBase = "https://public.api.bsky.app"

// BlueskyAdapter reads an author feed through the public XRPC endpoint.
// Cursor pagination, newest first.
type BlueskyAdapter struct {
	deps    Deps
	baseURL string
}

func NewBlueskyAdapter(deps Deps) *BlueskyAdapter {
	return &BlueskyAdapter{deps: deps, baseURL: blueskyAPIBase}
}

func (a *BlueskyAdapter) Platform() domain.Platform { return domain.PlatformBluesky }

type blueskyFeedResponse struct {
	Cursor string `json:"cursor"`
	Feed   []struct {
		Post struct {
			URI    string `json:"uri"`
			Author struct {
				Handle string `json:"handle"`
			} `json:"author"`
			Record struct {
				Text      string    `json:"text"`
				CreatedAt time.Time `json:"createdAt"`
			} `json:"record"`
		} `json:"post"`
	} `json:"feed"`
}

func (a *BlueskyAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	cursor := ""

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=100",
			a.baseURL, url.QueryEscape(src.Handle))
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var resp blueskyFeedResponse
		if err := a.deps.getJSON(ctx, endpoint, nil, &resp); err != nil {
			// Keep what earlier pages produced.
			return items, domain.NewSourceError(src.ID(), err)
		}

		for _, entry := range resp.Feed {
			created := entry.Post.Record.CreatedAt
			if created.Before(cutoff) {
				return items, nil
			}
			items = append(items, domain.NewsItem{
				ID:        string(domain.PlatformBluesky) + ":" + entry.Post.URI,
				SourceID:  src.ID(),
				Platform:  domain.PlatformBluesky,
				Region:    src.Region,
				Body:      entry.Post.Record.Text,
				Link:      postLinkFromURI(entry.Post.Author.Handle, entry.Post.URI),
				Timestamp: created,
			})
		}

		if resp.Cursor == "" || len(resp.Feed) == 0 {
			return items, nil
		}
		cursor = resp.Cursor
	}

	return items, nil
}

// postLinkFromURI turns an at:// URI into a public web URL.
func postLinkFromURI(handle, uri string) string {
	// at://did:plc:xxx/app.bsky.feed.post/<rkey>
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, uri[i+1:])
		}
	}
	return ""
}
