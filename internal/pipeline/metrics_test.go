package pipeline

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/internal/resilience"
	"github.com/sells-group/challenge-resolver/internal/structured"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestMetrics_ObserveStrategy(t *testing.T) {
	m := NewMetrics()
	m.ObserveStrategy(model.SourceStructured, "error")
	m.ObserveStrategy(model.SourceStructured, "error")
	m.ObserveStrategy(model.SourcePattern, "contributed")

	assert.InDelta(t, 2, counterValue(t, m.StrategyOutcomes.WithLabelValues("structured_extractor", "error")), 0)
	assert.InDelta(t, 1, counterValue(t, m.StrategyOutcomes.WithLabelValues("pattern_extractor", "contributed")), 0)
}

func TestMetrics_ObserveBreaker(t *testing.T) {
	m := NewMetrics()
	m.ObserveBreaker("opencage", resilience.StateClosed, resilience.StateOpen)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BreakerState.WithLabelValues("opencage")), 0)
}

func TestMetrics_Watchers(t *testing.T) {
	m := NewMetrics()
	m.WatchStructured(func() structured.Stats { return structured.Stats{Calls: 5, Successes: 3, Violations: 2, Failures: 1} })
	m.WatchGeocode(func() geocode.ResolverStats { return geocode.ResolverStats{Hits: 7, ProviderCalls: 2} })

	expected := `
# HELP resolver_structured_calls_total Structured extractor calls.
# TYPE resolver_structured_calls_total counter
resolver_structured_calls_total 5
# HELP resolver_geocode_cache_hits_total Geocode resolver cache_hits.
# TYPE resolver_geocode_cache_hits_total counter
resolver_geocode_cache_hits_total 7
`
	err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"resolver_structured_calls_total", "resolver_geocode_cache_hits_total")
	require.NoError(t, err)
}
