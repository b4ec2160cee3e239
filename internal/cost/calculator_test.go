package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/challenge-resolver/internal/config"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku":  {Input: 1.00, Output: 5.00},
			"sonnet": {Input: 3.00, Output: 15.00},
		},
		Geocode: map[string]float64{"google": 0.005, "opencage": 0},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{"haiku typical", "haiku", 1_000_000, 100_000, 1.50},
		{"sonnet output only", "sonnet", 0, 1_000_000, 15.00},
		{"zero tokens", "haiku", 0, 0, 0},
		{"unknown model", "gpt", 1_000_000, 1_000_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(testRates())
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestGeocodeAndTotals(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testRates())
	calc.Geocode("google")
	calc.Geocode("google")
	calc.Geocode("opencage")
	calc.Claude("haiku", 1_000_000, 0)

	assert.InDelta(t, 1.01, calc.Total(), 1e-9)
	assert.Equal(t, map[string]int{"google": 2, "opencage": 1, "anthropic": 1}, calc.Calls())
}

func TestCalculator_Concurrent(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testRates())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calc.Geocode("google")
		}()
	}
	wg.Wait()
	assert.InDelta(t, 0.25, calc.Total(), 1e-9)
	assert.Equal(t, 50, calc.Calls()["google"])
}

func TestRatesFromConfig(t *testing.T) {
	t.Parallel()

	r := RatesFromConfig(config.PricingConfig{
		Anthropic: map[string]config.ModelPricing{"haiku": {Input: 1, Output: 5}},
		Geocode:   map[string]float64{"google": 0.005},
	})
	assert.Equal(t, ModelRate{Input: 1, Output: 5}, r.Anthropic["haiku"])
	assert.InDelta(t, 0.005, r.Geocode["google"], 1e-12)

	assert.Contains(t, DefaultRates().Anthropic, "claude-haiku-4-5-20251001")
}
