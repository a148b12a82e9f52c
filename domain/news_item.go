package domain

import (
	"sort"
	"time"
)

// NewsItem is one normalized post or article. Items are immutable after an
// adapter creates them; two fetches of the same underlying post must yield
// the same ID, which is what makes cross-fetch deduplication possible.
type NewsItem struct {
	// ID is "<platform>:<platform-native id>" (post URI, status URI,
	// message id, GUID, listing fullname).
	ID        string    `json:"id"`
	SourceID  string    `json:"sourceId"`
	Platform  Platform  `json:"platform"`
	Region    string    `json:"region"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"` // post creation time, never fetch time
}

// SortNewestFirst orders items by timestamp descending, in place.
// Order across sources is undefined after a merge until this is applied.
func SortNewestFirst(items []NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}

// DedupByID removes items whose ID was already seen, keeping first
// occurrence. Returns the filtered slice.
func DedupByID(items []NewsItem) []NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ItemsSince returns the items strictly newer than the watermark, preserving
// input order. A zero watermark returns everything.
func ItemsSince(items []NewsItem, since time.Time) []NewsItem {
	if since.IsZero() {
		return items
	}
	out := make([]NewsItem, 0, len(items))
	for _, item := range items {
		if item.Timestamp.After(since) {
			out = append(out, item)
		}
	}
	return out
}
