package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Signals    SignalsConfig    `yaml:"signals" mapstructure:"signals"`
	Chain      ChainConfig      `yaml:"chain" mapstructure:"chain"`
	Structured StructuredConfig `yaml:"structured" mapstructure:"structured"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SignalsConfig bounds every text field the aggregator hands downstream.
type SignalsConfig struct {
	TitleMaxChars       int `yaml:"title_max_chars" mapstructure:"title_max_chars"`
	DescriptionMaxChars int `yaml:"description_max_chars" mapstructure:"description_max_chars"`
	MaxTags             int `yaml:"max_tags" mapstructure:"max_tags"`
	TagMaxChars         int `yaml:"tag_max_chars" mapstructure:"tag_max_chars"`
	CaptionMaxWords     int `yaml:"caption_max_words" mapstructure:"caption_max_words"`
}

// ChainConfig toggles the location strategies. The structured strategy is
// toggled by structured.enabled.
type ChainConfig struct {
	RecordingLocation bool `yaml:"recording_location" mapstructure:"recording_location"`
	FeaturedPlace     bool `yaml:"featured_place" mapstructure:"featured_place"`
	Pattern           bool `yaml:"pattern" mapstructure:"pattern"`
	// GeocodeFallback geocodes a resolved name when no strategy supplied coordinates.
	GeocodeFallback bool `yaml:"geocode_fallback" mapstructure:"geocode_fallback"`
}

// StructuredConfig configures the model-backed extractor.
type StructuredConfig struct {
	Enabled     bool        `yaml:"enabled" mapstructure:"enabled"`
	Model       string      `yaml:"model" mapstructure:"model"`
	MaxTokens   int         `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retry       RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures backoff for transient transport failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeocodeConfig configures the geocoding resolver.
type GeocodeConfig struct {
	// Providers lists provider names in priority order.
	Providers   []string       `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs int            `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	OpenCage    ProviderConfig `yaml:"opencage" mapstructure:"opencage"`
	Google      ProviderConfig `yaml:"google" mapstructure:"google"`
	Retry       RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Breaker     BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Cache       CacheConfig    `yaml:"cache" mapstructure:"cache"`
}

// ProviderConfig holds one geocoding provider's credentials and limits.
type ProviderConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// BreakerConfig configures per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CacheConfig selects the geocode cache backend.
type CacheConfig struct {
	// Driver is one of memory, sqlite, postgres, redis.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Geocode   map[string]float64      `yaml:"geocode" mapstructure:"geocode"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var cacheDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "redis": true}

var geocodeProviders = map[string]bool{"opencage": true, "google": true}

// Load reads configuration from ./config.yaml (optional) and RESOLVER_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("signals.title_max_chars", 300)
	v.SetDefault("signals.description_max_chars", 1000)
	v.SetDefault("signals.max_tags", 20)
	v.SetDefault("signals.tag_max_chars", 50)
	v.SetDefault("signals.caption_max_words", 500)

	v.SetDefault("chain.recording_location", true)
	v.SetDefault("chain.featured_place", true)
	v.SetDefault("chain.pattern", true)
	v.SetDefault("chain.geocode_fallback", true)

	v.SetDefault("structured.enabled", true)
	v.SetDefault("structured.model", "claude-haiku-4-5-20251001")
	v.SetDefault("structured.max_tokens", 600)
	v.SetDefault("structured.timeout_secs", 30)
	v.SetDefault("structured.retry.max_attempts", 3)
	v.SetDefault("structured.retry.initial_backoff_ms", 1000)
	v.SetDefault("structured.retry.max_backoff_ms", 8000)

	v.SetDefault("geocode.providers", []string{"opencage", "google"})
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.opencage.base_url", "https://api.opencagedata.com/geocode/v1/json")
	v.SetDefault("geocode.opencage.rate_limit", 1.0)
	v.SetDefault("geocode.google.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.google.rate_limit", 10.0)
	v.SetDefault("geocode.retry.max_attempts", 3)
	v.SetDefault("geocode.retry.initial_backoff_ms", 1000)
	v.SetDefault("geocode.retry.max_backoff_ms", 8000)
	v.SetDefault("geocode.breaker.failure_threshold", 5)
	v.SetDefault("geocode.breaker.reset_timeout_secs", 60)
	v.SetDefault("geocode.cache.driver", "sqlite")
	v.SetDefault("geocode.cache.sqlite_path", "geocode_cache.db")
	v.SetDefault("geocode.cache.redis_prefix", "geocode:")

	v.SetDefault("batch.concurrency", 4)

	v.SetDefault("pricing.anthropic", map[string]any{
		"claude-haiku-4-5-20251001":  map[string]any{"input": 1.0, "output": 5.0},
		"claude-sonnet-4-5-20250929": map[string]any{"input": 3.0, "output": 15.0},
	})
	v.SetDefault("pricing.geocode", map[string]any{
		"opencage": 0.0,
		"google":   0.005,
	})
}

// Validate checks the configuration required by mode ("resolve", "batch",
// or "geocode"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "resolve", "batch":
		if c.Structured.Enabled && c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required when structured.enabled")
		}
		if !c.Chain.RecordingLocation && !c.Chain.FeaturedPlace && !c.Structured.Enabled && !c.Chain.Pattern {
			errs = append(errs, "at least one strategy must be enabled")
		}
		if mode == "batch" && (c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64) {
			errs = append(errs, fmt.Sprintf("batch.concurrency must be between 1 and 64 (got %d)", c.Batch.Concurrency))
		}
		errs = append(errs, c.validateSignals()...)
		if c.Chain.GeocodeFallback {
			errs = append(errs, c.validateGeocode()...)
		}
	case "geocode":
		errs = append(errs, c.validateGeocode()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSignals() []string {
	var errs []string
	s := c.Signals
	if s.TitleMaxChars <= 0 || s.DescriptionMaxChars <= 0 || s.MaxTags <= 0 || s.TagMaxChars <= 0 || s.CaptionMaxWords <= 0 {
		errs = append(errs, "signals bounds must all be > 0")
	}
	return errs
}

func (c *Config) validateGeocode() []string {
	var errs []string
	g := c.Geocode
	for _, p := range g.Providers {
		if !geocodeProviders[p] {
			errs = append(errs, fmt.Sprintf("geocode.providers: unknown provider %q", p))
		}
	}
	if !cacheDrivers[g.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("geocode.cache.driver: unknown driver %q", g.Cache.Driver))
	}
	switch g.Cache.Driver {
	case "postgres":
		if g.Cache.DatabaseURL == "" {
			errs = append(errs, "geocode.cache.database_url is required for postgres")
		}
	case "redis":
		if g.Cache.RedisAddr == "" {
			errs = append(errs, "geocode.cache.redis_addr is required for redis")
		}
	case "sqlite":
		if g.Cache.SQLitePath == "" {
			errs = append(errs, "geocode.cache.sqlite_path is required for sqlite")
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
