package service

import "newspulse/domain"

// MergeIncremental applies the client-side incremental update rule: new
// items are deduplicated against the existing buffer's ids, sorted newest
// first among themselves, and prepended. Already-seen items never move, so
// a late-arriving backfilled post cannot reorder the visible feed.
func MergeIncremental(existing, incoming []domain.NewsItem) []domain.NewsItem {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item.ID] = struct{}{}
	}

	fresh := make([]domain.NewsItem, 0, len(incoming))
	for _, item := range incoming {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return existing
	}

	domain.SortNewestFirst(fresh)
	return append(fresh, existing...)
}
