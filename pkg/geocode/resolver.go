package geocode

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/challenge-resolver/internal/model"
)

// Resolution is a resolved query.
type Resolution struct {
	Query      string    `json:"query"`
	QueryKey   string    `json:"query_key"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Provider   string    `json:"provider"`
	ResolvedAt time.Time `json:"resolved_at"`
	Cached     bool      `json:"cached"`
}

// Coordinates returns the resolved pair.
func (r Resolution) Coordinates() model.Coordinates {
	return model.Coordinates{Lat: r.Lat, Lng: r.Lng}
}

// ResolverStats is a snapshot of the resolver's counters.
type ResolverStats struct {
	Hits             int64 `json:"hits"`
	Misses           int64 `json:"misses"`
	ProviderCalls    int64 `json:"provider_calls"`
	ProviderFailures int64 `json:"provider_failures"`
	Unresolved       int64 `json:"unresolved"`
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProviderCallHook calls fn before every provider request, e.g. to
// attribute cost.
func WithProviderCallHook(fn func(provider string)) ResolverOption {
	return func(r *Resolver) { r.onCall = fn }
}

// Resolver turns place descriptions into coordinates. It never calls a
// provider for a key the cache already holds, and collapses concurrent
// misses for the same key into one provider round.
type Resolver struct {
	cache     Cache
	providers []Provider
	onCall    func(provider string)
	now       func() time.Time
	group     singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	calls      atomic.Int64
	failures   atomic.Int64
	unresolved atomic.Int64
}

// NewResolver creates a Resolver that tries providers in order. A nil cache
// is replaced by a MemoryCache.
func NewResolver(cache Cache, providers []Provider, opts ...ResolverOption) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	r := &Resolver{cache: cache, providers: providers, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() ResolverStats {
	return ResolverStats{
		Hits:             r.hits.Load(),
		Misses:           r.misses.Load(),
		ProviderCalls:    r.calls.Load(),
		ProviderFailures: r.failures.Load(),
		Unresolved:       r.unresolved.Load(),
	}
}

// Resolve returns coordinates for query. It never fails: provider and cache
// errors are logged and an unresolvable query returns false.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Resolution, bool) {
	key := Normalize(query)
	if key == "" {
		return nil, false
	}
	log := zap.L().With(zap.String("query_key", key))

	if res, ok := r.lookup(ctx, key, log); ok {
		res.Query = query
		return res, true
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		if res, ok := r.lookup(ctx, key, log); ok {
			return res, nil
		}
		r.misses.Add(1)
		return r.fetch(ctx, collapse(query), key, log), nil
	})
	shared, _ := v.(*Resolution)
	if shared == nil {
		return nil, false
	}
	res := *shared
	res.Query = query
	return &res, true
}

func (r *Resolver) lookup(ctx context.Context, key string, log *zap.Logger) (*Resolution, bool) {
	e, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Warn("geocode: cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok || e == nil {
		return nil, false
	}
	r.hits.Add(1)
	log.Debug("geocode: cache hit", zap.String("provider", e.Provider))
	return &Resolution{
		QueryKey:   e.QueryKey,
		Lat:        e.Lat,
		Lng:        e.Lng,
		Provider:   e.Provider,
		ResolvedAt: e.ResolvedAt,
		Cached:     true,
	}, true
}

func (r *Resolver) fetch(ctx context.Context, query, key string, log *zap.Logger) *Resolution {
	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		r.calls.Add(1)
		if r.onCall != nil {
			r.onCall(p.Name())
		}

		m, err := p.Geocode(ctx, query)
		if err != nil {
			r.failures.Add(1)
			log.Warn("geocode: provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if m == nil {
			log.Debug("geocode: provider has no match", zap.String("provider", p.Name()))
			continue
		}
		if !(model.Coordinates{Lat: m.Lat, Lng: m.Lng}).Valid() {
			r.failures.Add(1)
			log.Warn("geocode: provider returned invalid coordinates",
				zap.String("provider", p.Name()),
				zap.Float64("lat", m.Lat),
				zap.Float64("lng", m.Lng),
			)
			continue
		}

		entry := CacheEntry{
			QueryKey:   key,
			Lat:        m.Lat,
			Lng:        m.Lng,
			Provider:   p.Name(),
			ResolvedAt: r.now().UTC(),
		}
		stored, err := r.cache.PutIfAbsent(ctx, entry)
		switch {
		case err != nil:
			log.Warn("geocode: cache write failed", zap.Error(err))
		case !stored:
			// Another process got there first; its entry is authoritative.
			if existing, ok, getErr := r.cache.Get(ctx, key); getErr == nil && ok && existing != nil {
				entry = *existing
			}
		}
		return &Resolution{
			QueryKey:   entry.QueryKey,
			Lat:        entry.Lat,
			Lng:        entry.Lng,
			Provider:   entry.Provider,
			ResolvedAt: entry.ResolvedAt,
		}
	}

	r.unresolved.Add(1)
	log.Info("geocode: unresolved", zap.String("query", query))
	return nil
}
