package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/internal/resilience"
	"github.com/sells-group/challenge-resolver/internal/structured"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

const metricsNamespace = "resolver"

// Metrics holds the Prometheus collectors for a resolver process.
type Metrics struct {
	Registry *prometheus.Registry

	VideosTotal      *prometheus.CounterVec
	StrategyOutcomes *prometheus.CounterVec
	VideoDuration    prometheus.Histogram
	ResultConfidence *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	factory promauto.Factory
}

// NewMetrics creates the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		factory:  factory,
		VideosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "videos_total",
			Help:      "Videos processed, by winning source and outcome.",
		}, []string{"source", "result"}),
		StrategyOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "strategy_outcomes_total",
			Help:      "Strategy runs, by strategy and outcome (contributed, empty, error).",
		}, []string{"strategy", "outcome"}),
		VideoDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "video_duration_seconds",
			Help:      "Wall time to resolve one video.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		ResultConfidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "result_confidence",
			Help:      "Confidence of resolved results, by winning source.",
			Buckets:   []float64{0, 0.5, 0.6, 0.75, 0.9, 0.95, 1},
		}, []string{"source"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "Provider circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"provider"}),
	}
}

// ObserveStrategy counts one strategy outcome. It matches chain.Observer.
func (m *Metrics) ObserveStrategy(source model.Source, outcome string) {
	m.StrategyOutcomes.WithLabelValues(string(source), outcome).Inc()
}

// ObserveBreaker records a breaker transition. It matches
// resilience.BreakerConfig.OnStateChange.
func (m *Metrics) ObserveBreaker(name string, _, to resilience.State) {
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}

func (m *Metrics) observeVideo(res model.ExtractionResult, d time.Duration) {
	source := string(res.Source)
	if source == "" {
		source = "none"
	}
	m.VideosTotal.WithLabelValues(source, string(res.Result)).Inc()
	m.VideoDuration.Observe(d.Seconds())
	m.ResultConfidence.WithLabelValues(source).Observe(res.Confidence)
}

// WatchStructured exports the structured extractor's counters.
func (m *Metrics) WatchStructured(stats func() structured.Stats) {
	counters := map[string]func(structured.Stats) int64{
		"calls":      func(s structured.Stats) int64 { return s.Calls },
		"successes":  func(s structured.Stats) int64 { return s.Successes },
		"violations": func(s structured.Stats) int64 { return s.Violations },
		"failures":   func(s structured.Stats) int64 { return s.Failures },
	}
	for name, get := range counters {
		m.factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "structured",
			Name:      name + "_total",
			Help:      "Structured extractor " + name + ".",
		}, func() float64 { return float64(get(stats())) })
	}
}

// WatchGeocode exports the geocode resolver's counters.
func (m *Metrics) WatchGeocode(stats func() geocode.ResolverStats) {
	counters := map[string]func(geocode.ResolverStats) int64{
		"cache_hits":        func(s geocode.ResolverStats) int64 { return s.Hits },
		"cache_misses":      func(s geocode.ResolverStats) int64 { return s.Misses },
		"provider_calls":    func(s geocode.ResolverStats) int64 { return s.ProviderCalls },
		"provider_failures": func(s geocode.ResolverStats) int64 { return s.ProviderFailures },
		"unresolved":        func(s geocode.ResolverStats) int64 { return s.Unresolved },
	}
	for name, get := range counters {
		m.factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "geocode",
			Name:      name + "_total",
			Help:      "Geocode resolver " + name + ".",
		}, func() float64 { return float64(get(stats())) })
	}
}
