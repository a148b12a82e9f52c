// Package cache implements the dual-tier response cache: a process-local
// tier backed by a persistent tier, with stale-while-revalidate semantics
// and single-flight deduplication of concurrent refreshes.
package cache

import "time"

// Entry wraps a cached payload with its write time. Entries are superseded
// by the next successful write, never mutated.
type Entry[T any] struct {
	Payload   T         `json:"payload"`
	ItemCount int       `json:"itemCount"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// State is the position of an entry in the staleness state machine.
type State int

const (
	// StateFresh entries are served directly with no refresh.
	StateFresh State = iota
	// StateStale entries are served immediately while a background refresh
	// runs for the key.
	StateStale
	// StateExpired entries count as a miss on the normal path. They are
	// retained only as a degraded last resort when a fetch fails.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "expired"
	}
}

// StateAt classifies the entry against the two staleness thresholds.
func (e Entry[T]) StateAt(now time.Time, freshWindow, staleWindow time.Duration) State {
	age := now.Sub(e.FetchedAt)
	switch {
	case age < freshWindow:
		return StateFresh
	case age < staleWindow:
		return StateStale
	default:
		return StateExpired
	}
}
