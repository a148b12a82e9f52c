package adapter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"newspulse/domain"
)

const redditAPIBase = "https://www.reddit.com"

// RedditAdapter reads a subreddit's newest submissions through the public
// JSON listing, paging with the listing's "after" fullname.
type RedditAdapter struct {
	deps    Deps
	baseURL string
}

func NewRedditAdapter(deps Deps) *RedditAdapter {
	return &RedditAdapter{deps: deps, baseURL: redditAPIBase}
}

func (a *RedditAdapter) Platform() domain.Platform { return domain.PlatformReddit }

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data struct {
				Name       string  `json:"name"` // fullname, e.g. t3_abc123
				Title      string  `json:"title"`
				SelfText   string  `json:"selftext"`
				URL        string  `json:"url"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (a *RedditAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	after := ""

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=100", a.baseURL, url.PathEscape(src.Handle))
		if after != "" {
			endpoint += "&after=" + url.QueryEscape(after)
		}

		var listing redditListing
		if err := a.deps.getJSON(ctx, endpoint, nil, &listing); err != nil {
			return items, domain.NewSourceError(src.ID(), err)
		}
		if len(listing.Data.Children) == 0 {
			return items, nil
		}

		for _, child := range listing.Data.Children {
			posted := time.Unix(int64(child.Data.CreatedUTC), 0).UTC()
			if posted.Before(cutoff) {
				return items, nil
			}
			link := child.Data.URL
			if child.Data.Permalink != "" {
				link = "https://www.reddit.com" + child.Data.Permalink
			}
			items = append(items, domain.NewsItem{
				ID:        string(domain.PlatformReddit) + ":" + child.Data.Name,
				SourceID:  src.ID(),
				Platform:  domain.PlatformReddit,
				Region:    src.Region,
				Title:     child.Data.Title,
				Body:      child.Data.SelfText,
				Link:      link,
				Timestamp: posted,
			})
		}

		if listing.Data.After == "" {
			return items, nil
		}
		after = listing.Data.After
	}

	return items, nil
}
