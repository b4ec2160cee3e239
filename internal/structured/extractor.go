// Package structured extracts challenge metadata through an external
// text-generation service under a closed output schema.
package structured

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/cost"
	"github.com/sells-group/challenge-resolver/internal/lexicon"
	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/internal/resilience"
	"github.com/sells-group/challenge-resolver/pkg/anthropic"
)

var (
	// ErrMalformedOutput means the reply failed schema validation twice.
	ErrMalformedOutput = eris.New("structured: malformed output")
	// ErrDisabled is returned by Extract when the strategy is switched off.
	ErrDisabled = eris.New("structured: disabled")
)

// Config controls the extractor.
type Config struct {
	Enabled   bool
	Model     string
	MaxTokens int64
	// Timeout bounds each individual request.
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// ConfigFromSettings converts the structured config section.
func ConfigFromSettings(cfg config.StructuredConfig) Config {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return Config{
		Enabled:   cfg.Enabled,
		Model:     cfg.Model,
		MaxTokens: maxTokens,
		Timeout:   timeout,
		Retry:     resilience.RetryFromSettings(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
	}
}

// Stats is a snapshot of the extractor's counters. Calls counts requests
// sent, including transport retries and schema retries.
type Stats struct {
	Calls      int64 `json:"calls"`
	Successes  int64 `json:"successes"`
	Violations int64 `json:"violations"`
	Failures   int64 `json:"failures"`
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLexicon sets the lexicon used to repair country names.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(e *Extractor) { e.validator.lex = lex }
}

// WithCostCalculator attributes token spend to calc.
func WithCostCalculator(calc *cost.Calculator) Option {
	return func(e *Extractor) { e.calc = calc }
}

// Extractor is safe for concurrent use. No lock is held across a request.
type Extractor struct {
	client    anthropic.Client
	cfg       Config
	validator validator
	calc      *cost.Calculator

	calls      atomic.Int64
	successes  atomic.Int64
	violations atomic.Int64
	failures   atomic.Int64
}

// New creates an Extractor. client may be nil when cfg.Enabled is false.
func New(client anthropic.Client, cfg Config, opts ...Option) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	e := &Extractor{
		client:    client,
		cfg:       cfg,
		validator: validator{lex: lexicon.Default()},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enabled reports whether Extract will call the service.
func (e *Extractor) Enabled() bool { return e.cfg.Enabled && e.client != nil }

// Stats returns a snapshot of the counters.
func (e *Extractor) Stats() Stats {
	return Stats{
		Calls:      e.calls.Load(),
		Successes:  e.successes.Load(),
		Violations: e.violations.Load(),
		Failures:   e.failures.Load(),
	}
}

// Extract asks the service for a structured extraction of sig. A reply that
// violates the schema is retried once with a stricter instruction; a second
// violation returns ErrMalformedOutput. Transport errors are returned after
// transient retries are exhausted.
func (e *Extractor) Extract(ctx context.Context, sig model.RawSignals) (*model.PartialExtraction, error) {
	if !e.Enabled() {
		return nil, ErrDisabled
	}
	log := zap.L().With(zap.String("video_id", sig.VideoID))

	prompt := BuildPrompt(sig)
	text, err := e.send(ctx, prompt)
	if err != nil {
		e.failures.Add(1)
		return nil, err
	}
	p, violations := e.validator.parse(text)
	if violations == nil {
		e.successes.Add(1)
		return p, nil
	}

	e.violations.Add(1)
	log.Warn("structured: schema violation, retrying", zap.Strings("violations", violations))

	text, err = e.send(ctx, retryPrompt(prompt, violations))
	if err != nil {
		e.failures.Add(1)
		return nil, err
	}
	p, violations = e.validator.parse(text)
	if violations == nil {
		e.successes.Add(1)
		return p, nil
	}

	e.violations.Add(1)
	e.failures.Add(1)
	log.Warn("structured: schema violation after retry", zap.Strings("violations", violations))
	return nil, eris.Wrapf(ErrMalformedOutput, "video %s", sig.VideoID)
}

func (e *Extractor) send(ctx context.Context, prompt string) (string, error) {
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	retry := e.cfg.Retry
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		e.calls.Add(1)
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		return e.client.CreateMessage(callCtx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "structured: request")
	}

	var spend float64
	if e.calc != nil {
		spend = e.calc.Claude(e.cfg.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	resp.Usage.LogCost(e.cfg.Model, "structured_extract", spend)
	return resp.Text(), nil
}
