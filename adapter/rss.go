package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"newspulse/domain"
)

// RSSAdapter parses syndication feeds. A feed document is a single page,
// so there is no pagination here, only the cutoff filter.
type RSSAdapter struct {
	deps   Deps
	parser *gofeed.Parser
}

func NewRSSAdapter(deps Deps) *RSSAdapter {
	parser := gofeed.NewParser()
	parser.Client = deps.Client
	parser.UserAgent = deps.UserAgent
	return &RSSAdapter{deps: deps, parser: parser}
}

func (a *RSSAdapter) Platform() domain.Platform { return domain.PlatformRSS }

// Fetch downloads and parses the feed at the source's handle (a feed URL).
func (a *RSSAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	if a.deps.Limiter != nil {
		if err := a.deps.Limiter.Wait(ctx, src.Handle); err != nil {
			return nil, domain.NewSourceError(src.ID(), err)
		}
	}

	feed, err := a.parser.ParseURLWithContext(src.Handle, ctx)
	if err != nil {
		if httpErr, ok := err.(gofeed.HTTPError); ok {
			if clsErr := domain.ClassifyStatus(httpErr.StatusCode); clsErr != nil {
				return nil, domain.NewSourceError(src.ID(), clsErr)
			}
		}
		return nil, domain.NewSourceError(src.ID(), fmt.Errorf("%w: %v", domain.ErrParse, err))
	}

	var items []domain.NewsItem
	for _, entry := range feed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published == nil || published.Before(cutoff) {
			continue
		}

		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}
		items = append(items, domain.NewsItem{
			ID:        string(domain.PlatformRSS) + ":" + guid,
			SourceID:  src.ID(),
			Platform:  domain.PlatformRSS,
			Region:    src.Region,
			Title:     entry.Title,
			Body:      entry.Description,
			Link:      entry.Link,
			Timestamp: published.UTC(),
		})
	}

	domain.SortNewestFirst(items)
	return items, nil
}
