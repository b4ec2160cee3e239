package chain

import (
	"sort"

	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/pattern"
	"github.com/sells-group/challenge-resolver/internal/signals"
	"github.com/sells-group/challenge-resolver/internal/structured"
)

// Validate rejects a configuration that enables no strategy. It is an
// operator-facing precondition checked before any video is processed.
func Validate(cfg *config.Config) error {
	c := cfg.Chain
	if !c.RecordingLocation && !c.FeaturedPlace && !cfg.Structured.Enabled && !c.Pattern {
		return ErrNoStrategies
	}
	return nil
}

// Deps are the collaborators FromConfig wires into strategies.
type Deps struct {
	Structured *structured.Extractor
	Pattern    *pattern.Extractor
}

// FromConfig builds the chain the configuration asks for.
func FromConfig(cfg *config.Config, deps Deps, opts ...Option) (*Chain, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	var strategies []Strategy
	if cfg.Chain.RecordingLocation {
		strategies = append(strategies, RecordingLocationStrategy{})
	}
	if cfg.Chain.FeaturedPlace {
		strategies = append(strategies, FeaturedPlaceStrategy{})
	}
	if cfg.Structured.Enabled && deps.Structured != nil && deps.Structured.Enabled() {
		strategies = append(strategies, StructuredStrategy{Extractor: deps.Structured})
	}
	if cfg.Chain.Pattern {
		strategies = append(strategies, PatternStrategy{Extractor: deps.Pattern})
	}

	agg := signals.New(signals.BoundsFromConfig(cfg.Signals))
	return New(agg, strategies, opts...)
}

func sortStrategies(s []Strategy) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Source().Rank() < s[j].Source().Rank()
	})
}
