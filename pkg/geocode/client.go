package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/challenge-resolver/internal/resilience"
)

const maxResponseBytes = 1 << 20

// ProviderOption configures an HTTP-backed provider.
type ProviderOption func(*httpProvider)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) ProviderOption {
	return func(p *httpProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(p *httpProvider) { p.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *httpProvider) {
		if d > 0 {
			p.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) ProviderOption {
	return func(p *httpProvider) {
		if rps <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) ProviderOption {
	return func(p *httpProvider) { p.retry = cfg }
}

// WithBreaker guards the provider with b.
func WithBreaker(b *resilience.Breaker) ProviderOption {
	return func(p *httpProvider) { p.breaker = b }
}

// httpProvider carries what every JSON-over-HTTP provider shares.
type httpProvider struct {
	name       string
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.Breaker
}

func newHTTPProvider(name, key, baseURL string, opts []ProviderOption) httpProvider {
	p := httpProvider{
		name:       name,
		key:        key,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// Name implements Provider.
func (p *httpProvider) Name() string { return p.name }

// Available implements Provider. A provider without a key is skipped.
func (p *httpProvider) Available() bool { return p.key != "" }

// apiStatus is implemented by response bodies that carry an in-band status
// which can fail a 200 response.
type apiStatus interface {
	statusErr() error
}

// getJSON issues a rate-limited GET through the breaker, retrying transient
// failures, and decodes the body into out.
func (p *httpProvider) getJSON(ctx context.Context, params url.Values, out any) error {
	call := func(ctx context.Context) error {
		return resilience.Do(ctx, p.retry, func(ctx context.Context) error {
			return p.fetch(ctx, params, out)
		})
	}
	if p.breaker == nil {
		return call(ctx)
	}
	return p.breaker.Execute(ctx, call)
}

func (p *httpProvider) fetch(ctx context.Context, params url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "geocode: %s rate limit", p.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", p.name)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", p.name)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return eris.Wrapf(err, "geocode: %s read body", p.name)
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.HTTPStatusError("geocode: "+p.name, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", p.name)
	}
	if s, ok := out.(apiStatus); ok {
		return s.statusErr()
	}
	return nil
}
