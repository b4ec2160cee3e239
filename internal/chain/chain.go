package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/challenge-resolver/internal/lexicon"
	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/internal/signals"
	"github.com/sells-group/challenge-resolver/internal/structured"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

// ErrNoStrategies is returned when a chain would run no strategy at all.
var ErrNoStrategies = eris.New("chain: at least one strategy must be enabled")

// Strategy outcomes reported to an Observer.
const (
	OutcomeContributed = "contributed"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
)

// Geocode methods recorded in the coordinates provenance.
const (
	MethodGeocodeVenue    = "geocode_venue"
	MethodGeocodeCentroid = "geocode_centroid"
)

// Geocoder resolves a place description. *geocode.Resolver satisfies it.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (*geocode.Resolution, bool)
}

// Observer is told how each strategy fared for each video.
type Observer func(source model.Source, outcome string)

// Option configures a Chain.
type Option func(*Chain)

// WithGeocoder enables the geocode fallback for results without coordinates.
func WithGeocoder(g Geocoder) Option {
	return func(c *Chain) { c.geocoder = g }
}

// WithLexicon sets the lexicon used to spell out country names in geocode
// queries.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(c *Chain) { c.lex = lex }
}

// WithObserver registers fn for strategy outcomes.
func WithObserver(fn Observer) Option {
	return func(c *Chain) { c.observe = fn }
}

// Chain resolves one video at a time. It holds no per-video state and is
// safe for concurrent use.
type Chain struct {
	aggregator *signals.Aggregator
	strategies []Strategy
	geocoder   Geocoder
	lex        *lexicon.Lexicon
	observe    Observer
}

// New creates a Chain running strategies in priority order regardless of
// the order given.
func New(agg *signals.Aggregator, strategies []Strategy, opts ...Option) (*Chain, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if agg == nil {
		agg = signals.New(signals.DefaultBounds())
	}
	ordered := append([]Strategy(nil), strategies...)
	sortStrategies(ordered)

	c := &Chain{aggregator: agg, strategies: ordered, lex: lexicon.Default()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Sources lists the strategies the chain runs, in order.
func (c *Chain) Sources() []model.Source {
	out := make([]model.Source, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Source()
	}
	return out
}

// Resolve runs every strategy against rec, merges their output and, when
// coordinates are still missing, geocodes the merged place. It never fails:
// a strategy error only means that strategy contributed nothing.
func (c *Chain) Resolve(ctx context.Context, rec *model.VideoRecord) model.ExtractionResult {
	sig := c.aggregator.Build(rec)
	log := zap.L().With(zap.String("video_id", sig.VideoID))

	partials := make([]*model.PartialExtraction, 0, len(c.strategies))
	for _, s := range c.strategies {
		p, err := s.Extract(ctx, rec, sig)
		switch {
		case errors.Is(err, structured.ErrDisabled):
			c.report(s.Source(), OutcomeEmpty)
			continue
		case err != nil:
			log.Warn("chain: strategy failed", zap.String("source", string(s.Source())), zap.Error(err))
			c.report(s.Source(), OutcomeError)
			continue
		case p.Empty():
			c.report(s.Source(), OutcomeEmpty)
			continue
		}
		p.Source = s.Source()
		partials = append(partials, p)
		c.report(s.Source(), OutcomeContributed)
	}

	res := Merge(partials)
	if res.Lat == nil && c.geocoder != nil {
		c.geocodeFallback(ctx, &res, log)
	}
	res.VideoID = sig.VideoID

	log.Debug("chain: resolved",
		zap.String("source", string(res.Source)),
		zap.Float64("confidence", res.Confidence),
		zap.String("result", string(res.Result)),
	)
	return res
}

func (c *Chain) report(src model.Source, outcome string) {
	if c.observe != nil {
		c.observe(src, outcome)
	}
}

// geocodeFallback tries the venue query first, then the locality centroid.
// A venue name is queried on its own when no locality is known. Coordinates
// are credited to whoever supplied the name the query was built from.
func (c *Chain) geocodeFallback(ctx context.Context, res *model.ExtractionResult, log *zap.Logger) {
	country := res.CountryCode
	if name, ok := c.lex.CountryName(country); ok {
		country = name
	}
	locality := []string{res.City}
	if !strings.EqualFold(res.Region, res.City) {
		locality = append(locality, res.Region)
	}

	type attempt struct {
		query  string
		field  string
		method string
	}
	var attempts []attempt
	if res.Restaurant != "" {
		attempts = append(attempts, attempt{
			query:  joinNonEmpty(append(append([]string{res.Restaurant}, locality...), country)),
			field:  model.FieldRestaurant,
			method: MethodGeocodeVenue,
		})
	}
	if centroid := joinNonEmpty(append(append([]string(nil), locality...), country)); centroid != "" {
		attempts = append(attempts, attempt{
			query:  centroid,
			field:  localityField(res),
			method: MethodGeocodeCentroid,
		})
	}
	if len(attempts) == 0 {
		return
	}

	prov := model.FieldProvenance{Field: model.FieldCoordinates}
	for i := range attempts {
		a := &attempts[i]
		fp := res.Provenance(a.field)
		if fp == nil {
			continue
		}
		supplier := *fp
		r, ok := c.geocoder.Resolve(ctx, a.query)
		prov.Attempts = append(prov.Attempts, model.ProvenanceAttempt{
			Source:     supplier.WinnerSource,
			Value:      a.query,
			Confidence: supplier.Confidence,
			Method:     a.method,
		})
		if !ok {
			continue
		}

		if a.method == MethodGeocodeCentroid {
			log.Info("chain: using approximate locality centroid", zap.String("query", a.query))
		}
		res.SetCoordinates(r.Coordinates())
		res.Source = supplier.WinnerSource
		res.Confidence = supplier.Confidence
		prov.WinnerSource = supplier.WinnerSource
		prov.WinnerValue = r.Coordinates()
		prov.Confidence = supplier.Confidence
		prov.Method = a.method + ":" + r.Provider
		if a.method == MethodGeocodeCentroid {
			prov.Method += ":approximate"
		}
		res.MergeLog = append(res.MergeLog, prov)
		return
	}
	log.Info("chain: geocode fallback found nothing", zap.Int("queries", len(prov.Attempts)))
}

// localityField names the most specific locality field that is populated.
func localityField(res *model.ExtractionResult) string {
	switch {
	case res.City != "":
		return model.FieldCity
	case res.Region != "":
		return model.FieldRegion
	default:
		return model.FieldCountryCode
	}
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
