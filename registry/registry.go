// Package registry loads the hand-curated source registry. The registry is
// maintained out of band; this package only reads it.
package registry

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"newspulse/domain"
)

type registryFile struct {
	Sources []registrySource `yaml:"sources"`
}

type registrySource struct {
	Handle             string  `yaml:"handle"`
	Platform           string  `yaml:"platform"`
	Region             string  `yaml:"region"`
	Tier               int     `yaml:"tier"`
	PostsPerDay        float64 `yaml:"posts_per_day"`
	Measured           *bool   `yaml:"measured"`
	BaselineMeasuredAt string  `yaml:"baseline_measured_at"`
}

// Registry is an immutable snapshot of the source list.
type Registry struct {
	sources []domain.Source
}

// Load parses the YAML registry at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw YAML.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse source registry: %w", err)
	}

	sources := make([]domain.Source, 0, len(file.Sources))
	for i, rs := range file.Sources {
		platform := domain.Platform(rs.Platform)
		if !platform.Valid() {
			return nil, fmt.Errorf("source %d (%s): unknown platform %q", i, rs.Handle, rs.Platform)
		}
		if rs.Handle == "" {
			return nil, fmt.Errorf("source %d: empty handle", i)
		}

		src := domain.Source{
			Handle:      rs.Handle,
			Platform:    platform,
			Region:      rs.Region,
			Tier:        domain.FetchTier(rs.Tier),
			PostsPerDay: rs.PostsPerDay,
		}
		if src.Tier == 0 {
			src.Tier = domain.TierStandard
		}
		if rs.BaselineMeasuredAt != "" {
			measuredAt, err := time.Parse(time.RFC3339, rs.BaselineMeasuredAt)
			if err != nil {
				return nil, fmt.Errorf("source %d (%s): invalid baseline_measured_at: %v", i, rs.Handle, err)
			}
			src.BaselineMeasuredAt = measuredAt.UTC()
		}
		if rs.Measured != nil {
			src.Measured = *rs.Measured
		} else {
			// Legacy registry entries carry no measured flag; a fractional
			// rate came from sampling, an integer one is a hand guess.
			src.Measured = rs.PostsPerDay != math.Trunc(rs.PostsPerDay)
		}
		sources = append(sources, src)
	}

	return &Registry{sources: sources}, nil
}

// Sources returns every registered source.
func (r *Registry) Sources() []domain.Source {
	return r.sources
}

// ByPlatform groups sources by platform.
func (r *Registry) ByPlatform() map[domain.Platform][]domain.Source {
	grouped := make(map[domain.Platform][]domain.Source)
	for _, src := range r.sources {
		grouped[src.Platform] = append(grouped[src.Platform], src)
	}
	return grouped
}

// ByRegion groups sources by region id.
func (r *Registry) ByRegion() map[string][]domain.Source {
	grouped := make(map[string][]domain.Source)
	for _, src := range r.sources {
		grouped[src.Region] = append(grouped[src.Region], src)
	}
	return grouped
}
