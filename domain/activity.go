package domain

// ActivityLevel classifies a region's posting volume against its baseline.
type ActivityLevel string

const (
	LevelNormal   ActivityLevel = "normal"
	LevelElevated ActivityLevel = "elevated"
	LevelCritical ActivityLevel = "critical"
	// LevelUnassessed marks regions without enough feed-source coverage to
	// score. They are reported so clients can render them, never classified.
	LevelUnassessed ActivityLevel = "unassessed"
)

// RegionActivity is the surge verdict for one region. It is derived fresh
// from the current item set on every cycle and never persisted as truth.
type RegionActivity struct {
	Region        string        `json:"region"`
	Count         int           `json:"count"`
	Baseline      int           `json:"baseline"`
	Multiplier    float64       `json:"multiplier"`
	Level         ActivityLevel `json:"level"`
	PercentChange float64       `json:"percentChange"`
	// SourceCount is the number of feed-platform sources backing the
	// baseline. Zero or one means the region is unassessed.
	SourceCount int `json:"sourceCount"`
}
