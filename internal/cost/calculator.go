// Package cost attributes spend to metered external calls.
package cost

import (
	"sync"

	"github.com/sells-group/challenge-resolver/internal/config"
)

// ModelRate is per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// Rates holds pricing for every metered provider.
type Rates struct {
	Anthropic map[string]ModelRate
	// Geocode maps provider name to USD per request.
	Geocode map[string]float64
}

// RatesFromConfig converts pricing config.
func RatesFromConfig(cfg config.PricingConfig) Rates {
	r := Rates{
		Anthropic: make(map[string]ModelRate, len(cfg.Anthropic)),
		Geocode:   make(map[string]float64, len(cfg.Geocode)),
	}
	for m, p := range cfg.Anthropic {
		r.Anthropic[m] = ModelRate{Input: p.Input, Output: p.Output}
	}
	for name, per := range cfg.Geocode {
		r.Geocode[name] = per
	}
	return r
}

// DefaultRates returns list pricing for the default models and providers.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Geocode: map[string]float64{
			"opencage": 0,
			"google":   0.005,
		},
	}
}

// Calculator computes and accumulates costs. Safe for concurrent use.
type Calculator struct {
	rates Rates

	mu    sync.Mutex
	total float64
	calls map[string]int
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates, calls: make(map[string]int)}
}

// Claude returns the cost of one Messages call and adds it to the total.
// Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return c.add("anthropic", 0)
	}
	v := (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
	return c.add("anthropic", v)
}

// Geocode returns the cost of one provider request and adds it to the total.
func (c *Calculator) Geocode(provider string) float64 {
	return c.add(provider, c.rates.Geocode[provider])
}

func (c *Calculator) add(service string, v float64) float64 {
	c.mu.Lock()
	c.total += v
	c.calls[service]++
	c.mu.Unlock()
	return v
}

// Total returns the accumulated cost in USD.
func (c *Calculator) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Calls returns per-service call counts.
func (c *Calculator) Calls() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.calls))
	for k, v := range c.calls {
		out[k] = v
	}
	return out
}
