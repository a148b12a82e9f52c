package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newspulse/config"
	"newspulse/domain"
)

// TelegramAdapter reads channel history. With full MTProto session
// credentials it goes through the HTTP gateway; without them it degrades to
// scraping the public t.me/s/<channel> preview pages, which carry less
// metadata but keep the channel in the pipeline.
type TelegramAdapter struct {
	deps Deps
	cfg  config.TelegramConfig
	// previewBase is overridable so tests can serve canned preview HTML.
	previewBase string
}

func NewTelegramAdapter(deps Deps, cfg config.TelegramConfig) *TelegramAdapter {
	return &TelegramAdapter{deps: deps, cfg: cfg, previewBase: "https://t.me"}
}

func (a *TelegramAdapter) Platform() domain.Platform { return domain.PlatformTelegram }

func (a *TelegramAdapter) Fetch(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	if a.cfg.Authenticated() {
		return a.fetchGateway(ctx, src, cutoff)
	}
	return a.fetchPreview(ctx, src, cutoff)
}

type telegramGatewayResponse struct {
	Messages []struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
		Date int64  `json:"date"` // unix seconds
	} `json:"messages"`
	NextOffsetID int64 `json:"next_offset_id"`
}

// fetchGateway pages channel history through the MTProto gateway.
func (a *TelegramAdapter) fetchGateway(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	header := http.Header{}
	header.Set("X-Api-Id", a.cfg.APIID)
	header.Set("X-Api-Hash", a.cfg.APIHash)
	header.Set("X-Session", a.cfg.Session)

	var items []domain.NewsItem
	var offsetID int64

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("%s/channels/%s/history?limit=100",
			a.cfg.GatewayURL, url.PathEscape(src.Handle))
		if offsetID > 0 {
			endpoint += fmt.Sprintf("&offset_id=%d", offsetID)
		}

		var resp telegramGatewayResponse
		if err := a.deps.getJSON(ctx, endpoint, header, &resp); err != nil {
			return items, domain.NewSourceError(src.ID(), err)
		}
		if len(resp.Messages) == 0 {
			return items, nil
		}

		for _, msg := range resp.Messages {
			posted := time.Unix(msg.Date, 0).UTC()
			if posted.Before(cutoff) {
				return items, nil
			}
			items = append(items, domain.NewsItem{
				ID:        fmt.Sprintf("%s:%s/%d", domain.PlatformTelegram, src.Handle, msg.ID),
				SourceID:  src.ID(),
				Platform:  domain.PlatformTelegram,
				Region:    src.Region,
				Body:      msg.Text,
				Link:      fmt.Sprintf("https://t.me/%s/%d", src.Handle, msg.ID),
				Timestamp: posted,
			})
		}

		if resp.NextOffsetID == 0 {
			return items, nil
		}
		offsetID = resp.NextOffsetID
	}

	return items, nil
}

// fetchPreview scrapes the public channel preview. Pagination uses the
// "before" message-id parameter the preview page itself uses.
func (a *TelegramAdapter) fetchPreview(ctx context.Context, src domain.Source, cutoff time.Time) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	before := ""

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("%s/s/%s", a.previewBase, url.PathEscape(src.Handle))
		if before != "" {
			endpoint += "?before=" + url.QueryEscape(before)
		}

		body, err := a.deps.get(ctx, endpoint, nil)
		if err != nil {
			return items, domain.NewSourceError(src.ID(), err)
		}
		doc, err := goquery.NewDocumentFromReader(body)
		body.Close()
		if err != nil {
			return items, domain.NewSourceError(src.ID(), fmt.Errorf("%w: %v", domain.ErrParse, err))
		}

		pageItems, oldestID, reachedCutoff := a.parsePreviewPage(doc, src, cutoff)
		items = append(items, pageItems...)
		if reachedCutoff || oldestID == "" || oldestID == before {
			return items, nil
		}
		before = oldestID
	}

	return items, nil
}

// parsePreviewPage extracts messages from one preview document. The preview
// lists messages oldest first, so it scans in reverse to keep the
// newest-first contract.
func (a *TelegramAdapter) parsePreviewPage(doc *goquery.Document, src domain.Source, cutoff time.Time) (items []domain.NewsItem, oldestID string, reachedCutoff bool) {
	messages := doc.Find(".tgme_widget_message")

	nodes := messages.Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		msg := messages.Eq(i)

		post, ok := msg.Attr("data-post") // "channel/1234"
		if !ok {
			continue
		}
		_, msgID, found := strings.Cut(post, "/")
		if !found {
			continue
		}
		if oldestID == "" || lessNumeric(msgID, oldestID) {
			oldestID = msgID
		}

		datetime, _ := msg.Find("time").Attr("datetime")
		posted, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			continue
		}
		if posted.Before(cutoff) {
			reachedCutoff = true
			continue
		}

		items = append(items, domain.NewsItem{
			ID:        string(domain.PlatformTelegram) + ":" + post,
			SourceID:  src.ID(),
			Platform:  domain.PlatformTelegram,
			Region:    src.Region,
			Body:      strings.TrimSpace(msg.Find(".tgme_widget_message_text").Text()),
			Link:      "https://t.me/" + post,
			Timestamp: posted.UTC(),
		})
	}

	return items, oldestID, reachedCutoff
}

// lessNumeric compares decimal message ids without parsing overflow risk.
func lessNumeric(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
