package adapter

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"newspulse/domain"
)

// MastodonAdapter reads an account's statuses from its home server.
// Handles look like "user@server.example"; each server is an independent
// origin with its own limits, which is why the fetcher runs this platform
// in small batches.
type MastodonAdapter struct {
	deps Deps
	// scheme is overridable so tests can point at a plain-HTTP server.
	scheme string
}

func NewMastodonAdapter(deps Deps) *MastodonAdapter {
	return &MastodonAdapter{deps: deps, scheme: "https"}
}

func (a *MastodonAdapter) Platform() domain.Platform { return domain.PlatformMastodon }

type mastodonAccount struct {
	ID string `json:"id"`
}

type mastodonStatus struct {
	ID        string    `json:"id"`
	URI       string    `json:"uri"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *MastodonAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	user, server, err := splitFederatedHandle(src.Handle)
	if err != nil {
		return nil, domain.NewSourceError(src.ID(), err)
	}

	lookupURL := fmt.Sprintf("%s://%s/api/v1/accounts/lookup?acct=%s",
		a.scheme, server, url.QueryEscape(user))
	var account mastodonAccount
	if err := a.deps.getJSON(ctx, lookupURL, nil, &account); err != nil {
		return nil, domain.NewSourceError(src.ID(), err)
	}

	var items []domain.NewsItem
	maxID := ""

	for page := 0; page < maxPages; page++ {
		statusURL := fmt.Sprintf("%s://%s/api/v1/accounts/%s/statuses?limit=40&exclude_replies=true",
			a.scheme, server, account.ID)
		if maxID != "" {
			statusURL += "&max_id=" + url.QueryEscape(maxID)
		}

		var statuses []mastodonStatus
		if err := a.deps.getJSON(ctx, statusURL, nil, &statuses); err != nil {
			return items, domain.NewSourceError(src.ID(), err)
		}
		if len(statuses) == 0 {
			return items, nil
		}

		for _, status := range statuses {
			if status.CreatedAt.Before(cutoff) {
				return items, nil
			}
			items = append(items, domain.NewsItem{
				ID:        string(domain.PlatformMastodon) + ":" + status.URI,
				SourceID:  src.ID(),
				Platform:  domain.PlatformMastodon,
				Region:    src.Region,
				Body:      flattenStatusHTML(status.Content),
				Link:      status.URL,
				Timestamp: status.CreatedAt,
			})
		}

		maxID = statuses[len(statuses)-1].ID
	}

	return items, nil
}

// splitFederatedHandle parses "user@server" with an optional leading "@".
func splitFederatedHandle(handle string) (user, server string, err error) {
	handle = strings.TrimPrefix(handle, "@")
	user, server, found := strings.Cut(handle, "@")
	if !found || user == "" || server == "" {
		return "", "", fmt.Errorf("%w: malformed federated handle %q", domain.ErrParse, handle)
	}
	return user, server, nil
}

// statusHTMLPolicy strips all tags; safe for concurrent use.
var statusHTMLPolicy = bluemonday.StrictPolicy()

// spaceCollapseRe pre-compiles the whitespace collapsing regex.
var spaceCollapseRe = regexp.MustCompile(`\s+`)

// flattenStatusHTML removes a status's HTML markup, decodes HTML entities,
// and returns plain text. Mastodon always entity-escapes status content, so
// sanitizing alone would leave &amp;/&#39; in the body.
func flattenStatusHTML(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	text := statusHTMLPolicy.Sanitize(rawHTML)
	text = html.UnescapeString(text)
	text = strings.TrimSpace(text)
	return spaceCollapseRe.ReplaceAllString(text, " ")
}
