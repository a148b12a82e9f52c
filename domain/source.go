package domain

import "time"

// Platform identifies the adapter family a source is fetched through.
// Adapter selection happens once at registry-load time, keyed by this enum.
type Platform string

const (
	PlatformBluesky  Platform = "bluesky"
	PlatformMastodon Platform = "mastodon"
	PlatformTelegram Platform = "telegram"
	PlatformRSS      Platform = "rss"
	PlatformReddit   Platform = "reddit"
)

// Platforms lists every supported platform in fetch order.
func Platforms() []Platform {
	return []Platform{PlatformBluesky, PlatformMastodon, PlatformTelegram, PlatformRSS, PlatformReddit}
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformBluesky, PlatformMastodon, PlatformTelegram, PlatformRSS, PlatformReddit:
		return true
	}
	return false
}

// FetchTier is the priority class controlling how often a source is polled.
type FetchTier int

const (
	TierRealtime FetchTier = iota + 1
	TierStandard
	TierBackground
)

// Source is one monitored account, channel, or feed from the registry.
// The registry is maintained out of band; sources are read-only here.
type Source struct {
	Handle   string    `yaml:"handle" json:"handle"`
	Platform Platform  `yaml:"platform" json:"platform"`
	Region   string    `yaml:"region" json:"region"`
	Tier     FetchTier `yaml:"tier" json:"tier"`

	// PostsPerDay is the source's expected posting rate. When Measured is
	// false the value is a hand-entered round-number guess and must not be
	// trusted by the baseline computation.
	PostsPerDay float64 `yaml:"posts_per_day" json:"postsPerDay"`
	Measured    bool    `yaml:"measured" json:"measured"`

	// BaselineMeasuredAt is when PostsPerDay was last sampled. Zero for
	// estimated rates.
	BaselineMeasuredAt time.Time `yaml:"baseline_measured_at,omitempty" json:"baselineMeasuredAt,omitempty"`
}

// ID returns a stable identifier for the source within the registry.
func (s Source) ID() string {
	return string(s.Platform) + ":" + s.Handle
}
