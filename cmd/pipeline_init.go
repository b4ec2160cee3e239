package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/challenge-resolver/internal/chain"
	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/cost"
	"github.com/sells-group/challenge-resolver/internal/lexicon"
	"github.com/sells-group/challenge-resolver/internal/pattern"
	"github.com/sells-group/challenge-resolver/internal/pipeline"
	"github.com/sells-group/challenge-resolver/internal/resilience"
	"github.com/sells-group/challenge-resolver/internal/store"
	"github.com/sells-group/challenge-resolver/internal/structured"
	"github.com/sells-group/challenge-resolver/pkg/anthropic"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

// pipelineEnv holds the initialized clients, cache and chain needed by the
// resolve, batch and geocode commands.
type pipelineEnv struct {
	Cache      store.GeocodeCache
	Geocoder   *geocode.Resolver
	Structured *structured.Extractor // nil in geocode mode
	Chain      *chain.Chain          // nil in geocode mode
	Costs      *cost.Calculator
	Metrics    *pipeline.Metrics
	Breakers   *resilience.Breakers
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
}

// initPipeline validates cfg for mode, opens the geocode cache, builds the
// provider list and, outside geocode mode, the strategy chain. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{
		Costs:   cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)),
		Metrics: pipeline.NewMetrics(),
	}

	breakerCfg := resilience.BreakerFromSettings(cfg.Geocode.Breaker.FailureThreshold, cfg.Geocode.Breaker.ResetTimeoutSecs)
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		zap.L().Warn("circuit breaker state change",
			zap.String("provider", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		env.Metrics.ObserveBreaker(name, from, to)
	}
	env.Breakers = resilience.NewBreakers(breakerCfg)

	if mode == "geocode" || cfg.Chain.GeocodeFallback {
		c, err := store.Open(ctx, cfg.Geocode.Cache)
		if err != nil {
			return nil, eris.Wrap(err, "open geocode cache")
		}
		env.Cache = c

		providers := buildProviders(cfg.Geocode, env.Breakers)
		env.Geocoder = geocode.NewResolver(c, providers, geocode.WithProviderCallHook(func(provider string) {
			env.Costs.Geocode(provider)
		}))
		env.Metrics.WatchGeocode(env.Geocoder.Stats)

		zap.L().Info("geocoder ready",
			zap.String("cache", cfg.Geocode.Cache.Driver),
			zap.Strings("providers", providerNames(providers)),
		)
	}
	if mode == "geocode" {
		return env, nil
	}

	var client anthropic.Client
	if cfg.Structured.Enabled {
		client = anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.BaseURL)
	} else {
		zap.L().Debug("structured extractor disabled")
	}
	lex := lexicon.Default()
	env.Structured = structured.New(client, structured.ConfigFromSettings(cfg.Structured),
		structured.WithLexicon(lex),
		structured.WithCostCalculator(env.Costs),
	)
	env.Metrics.WatchStructured(env.Structured.Stats)

	opts := []chain.Option{
		chain.WithLexicon(lex),
		chain.WithObserver(env.Metrics.ObserveStrategy),
	}
	if env.Geocoder != nil {
		opts = append(opts, chain.WithGeocoder(env.Geocoder))
	}
	ch, err := chain.FromConfig(cfg, chain.Deps{
		Structured: env.Structured,
		Pattern:    pattern.New(lex),
	}, opts...)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build strategy chain")
	}
	env.Chain = ch

	zap.L().Info("strategy chain ready", zap.Any("strategies", ch.Sources()))
	return env, nil
}

// buildProviders creates the configured providers in priority order. Each
// provider gets its own breaker from breakers.
func buildProviders(gc config.GeocodeConfig, breakers *resilience.Breakers) []geocode.Provider {
	retry := resilience.RetryFromSettings(gc.Retry.MaxAttempts, gc.Retry.InitialBackoffMs, gc.Retry.MaxBackoffMs)
	timeout := time.Duration(gc.TimeoutSecs) * time.Second

	opts := func(name string, pc config.ProviderConfig) []geocode.ProviderOption {
		return []geocode.ProviderOption{
			geocode.WithBaseURL(pc.BaseURL),
			geocode.WithTimeout(timeout),
			geocode.WithRateLimit(pc.RateLimit),
			geocode.WithRetry(retry),
			geocode.WithBreaker(breakers.Get(name)),
		}
	}

	var providers []geocode.Provider
	for _, name := range gc.Providers {
		switch name {
		case "opencage":
			providers = append(providers, geocode.NewOpenCage(gc.OpenCage.Key, opts(name, gc.OpenCage)...))
		case "google":
			providers = append(providers, geocode.NewGoogle(gc.Google.Key, opts(name, gc.Google)...))
		default:
			zap.L().Warn("unknown geocode provider, skipping", zap.String("provider", name))
		}
	}
	return providers
}

func providerNames(providers []geocode.Provider) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if p.Available() {
			names = append(names, p.Name())
		} else {
			names = append(names, p.Name()+" (no key)")
		}
	}
	return names
}

// logCosts reports accumulated spend at the end of a command.
func (pe *pipelineEnv) logCosts() {
	if pe.Costs == nil {
		return
	}
	zap.L().Info("cost summary",
		zap.Float64("total_usd", pe.Costs.Total()),
		zap.Any("calls", pe.Costs.Calls()),
	)
}
