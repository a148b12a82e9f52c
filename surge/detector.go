// Package surge classifies per-region posting volume against a learned
// baseline derived from the source registry's posting rates.
package surge

import (
	"log/slog"
	"math"
	"time"

	"newspulse/domain"
)

// Policy constants. The floors exist because a region with a tiny baseline
// would otherwise flag critical from ordinary noise; the exact values are
// pinned by tests, not derived.
const (
	criticalMultiplier = 5.0
	criticalFloor      = 50
	elevatedMultiplier = 2.5
	elevatedFloor      = 25

	// conservativeDefaultRate replaces a source's posts-per-day when the
	// registry value is an untrusted round-number estimate, so one badly
	// guessed high-volume source cannot inflate a region's baseline and
	// mask a real surge.
	conservativeDefaultRate = 3.0

	// minFeedSources is the coverage floor below which a region is
	// reported but never classified.
	minFeedSources = 2
)

// AggregateRegion is the synthetic region covering every scored source.
const AggregateRegion = "all"

// TimeOfDayFactor maps an hour (0-23, UTC) to an activity weight with mean
// 1.0 over the day. Sources post disproportionately during waking hours;
// a flat daily average would read naturally quiet hours as elevated.
type TimeOfDayFactor func(hour int) float64

// DefaultTimeOfDayFactor is a two-level day/night curve: overnight hours
// run at roughly half the daily average, daytime hours above it.
func DefaultTimeOfDayFactor(hour int) float64 {
	if hour >= 1 && hour < 9 {
		return 0.5
	}
	return 1.25
}

// FlatTimeOfDayFactor disables the time-of-day adjustment.
func FlatTimeOfDayFactor(int) float64 { return 1.0 }

// Detector converts expected posting rates and an observed item set into
// RegionActivity verdicts.
type Detector struct {
	logger    *slog.Logger
	now       func() time.Time
	todFactor TimeOfDayFactor
}

// Option mutates a Detector at construction time.
type Option func(*Detector)

// WithClock overrides the detector's clock.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithTimeOfDayFactor overrides the activity curve.
func WithTimeOfDayFactor(f TimeOfDayFactor) Option {
	return func(d *Detector) { d.todFactor = f }
}

func NewDetector(logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		logger:    logger,
		now:       time.Now,
		todFactor: DefaultTimeOfDayFactor,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Assess scores every region covered by sources or items over the given
// window, plus the aggregate "all" region. Regions with insufficient
// source coverage come back unassessed rather than misleadingly normal.
func (d *Detector) Assess(items []domain.NewsItem, sources []domain.Source, window time.Duration) map[string]domain.RegionActivity {
	factor := d.todFactor(d.now().UTC().Hour())

	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Region]++
	}

	regionSources := make(map[string][]domain.Source)
	for _, src := range sources {
		regionSources[src.Region] = append(regionSources[src.Region], src)
	}

	regions := make(map[string]struct{}, len(regionSources)+len(counts))
	for region := range regionSources {
		regions[region] = struct{}{}
	}
	for region := range counts {
		regions[region] = struct{}{}
	}

	activities := make(map[string]domain.RegionActivity, len(regions)+1)
	for region := range regions {
		activities[region] = d.assessRegion(region, counts[region], regionSources[region], window, factor)
	}

	activities[AggregateRegion] = d.assessRegion(AggregateRegion, len(items), sources, window, factor)

	return activities
}

func (d *Detector) assessRegion(region string, count int, sources []domain.Source, window time.Duration, factor float64) domain.RegionActivity {
	activity := domain.RegionActivity{
		Region:      region,
		Count:       count,
		Level:       domain.LevelUnassessed,
		SourceCount: len(sources),
	}

	if len(sources) < minFeedSources {
		return activity
	}

	baseline := expectedCount(sources, window, factor)
	if baseline < 1 {
		// A region whose sources barely post cannot be scored meaningfully.
		return activity
	}

	activity.Baseline = baseline
	multiplier := float64(count) / float64(baseline)
	activity.Multiplier = math.Round(multiplier*100) / 100
	activity.PercentChange = math.Round((multiplier-1)*10000) / 100
	activity.Level = classify(multiplier, count)

	if activity.Level != domain.LevelNormal {
		d.logger.Info("region activity above baseline",
			"region", region,
			"count", count,
			"baseline", baseline,
			"multiplier", activity.Multiplier,
			"level", activity.Level)
	}

	return activity
}

// expectedCount converts the summed daily rate to a window-scaled,
// time-of-day-adjusted expectation. Untrusted estimated rates are replaced
// with the conservative default before summing.
func expectedCount(sources []domain.Source, window time.Duration, factor float64) int {
	var dailySum float64
	for _, src := range sources {
		if src.Measured {
			dailySum += src.PostsPerDay
		} else {
			dailySum += conservativeDefaultRate
		}
	}

	expected := dailySum * window.Hours() / 24 * factor
	return int(math.Round(expected))
}

// classify is the pure multiplier-and-floor function behind the level
// field. Both branches require the multiplier AND the absolute count.
func classify(multiplier float64, count int) domain.ActivityLevel {
	switch {
	case multiplier >= criticalMultiplier && count > criticalFloor:
		return domain.LevelCritical
	case multiplier >= elevatedMultiplier && count > elevatedFloor:
		return domain.LevelElevated
	default:
		return domain.LevelNormal
	}
}
