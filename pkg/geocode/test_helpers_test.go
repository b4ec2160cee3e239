package geocode

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/resilience"
)

// fakeProvider returns a fixed match or error and counts calls.
type fakeProvider struct {
	name        string
	match       *Match
	err         error
	delay       time.Duration
	unavailable bool
	calls       atomic.Int32
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return !f.unavailable }

func (f *fakeProvider) Geocode(ctx context.Context, _ string) (*Match, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.match == nil {
		return nil, nil
	}
	m := *f.match
	return &m, nil
}

func oslo() *Match { return &Match{Lat: 59.9139, Lng: 10.7522, City: "Oslo", CountryCode: "NO"} }

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*CacheEntry, bool, error) {
	return nil, false, eris.New("cache down")
}

func (brokenCache) PutIfAbsent(context.Context, CacheEntry) (bool, error) {
	return false, eris.New("cache down")
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}
