package go24so

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Defaults for ClientOptions. The rate limit and cache defaults mirror the
// published API conventions.
const (
	DefaultBaseURL      = "https://rest.api.24sevenoffice.com/v1"
	DefaultTimeout      = 30 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheMaxSize = 1000
	DefaultRateLimit    = 100 // requests per minute

	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff        = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultJitter            = 0.1
)

// ClientOptions is the resolved configuration of a client. Read-only once
// the client is constructed; use the functional options to set fields.
type ClientOptions struct {
	BaseURL  string
	TokenURL string

	CacheEnabled bool
	CacheTTL     time.Duration
	CacheMaxSize int

	// RateLimitRate is the ceiling in requests per minute; <= 0 disables
	// local rate limiting.
	RateLimitRate int

	HTTP2   bool
	Headers map[string]string
	Timeout time.Duration

	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64
	BackoffStrategy   BackoffStrategy

	Logger     Logger
	Metrics    *MetricsCollector
	HTTPClient *http.Client
}

// Option configures a client at construction time.
type Option func(*ClientOptions)

func defaultOptions() ClientOptions {
	return ClientOptions{
		BaseURL:           DefaultBaseURL,
		TokenURL:          DefaultTokenURL,
		CacheEnabled:      true,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSize:      DefaultCacheMaxSize,
		RateLimitRate:     DefaultRateLimit,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		Jitter:            DefaultJitter,
		BackoffStrategy:   ExponentialJitter,
		Headers: map[string]string{
			"User-Agent": "go24so " + Version,
			"Accept":     "application/json",
		},
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(o *ClientOptions) {
		o.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(tokenURL string) Option {
	return func(o *ClientOptions) {
		o.TokenURL = tokenURL
	}
}

// WithCacheEnabled toggles the response cache.
func WithCacheEnabled(enabled bool) Option {
	return func(o *ClientOptions) {
		o.CacheEnabled = enabled
	}
}

// WithCacheTTL sets the response cache time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *ClientOptions) {
		o.CacheTTL = ttl
	}
}

// WithCacheMaxSize bounds the response cache entry count.
func WithCacheMaxSize(n int) Option {
	return func(o *ClientOptions) {
		o.CacheMaxSize = n
	}
}

// WithRateLimit sets the outbound ceiling in requests per minute; a value
// <= 0 disables local rate limiting.
func WithRateLimit(requestsPerMinute int) Option {
	return func(o *ClientOptions) {
		o.RateLimitRate = requestsPerMinute
	}
}

// WithHTTP2 enables the HTTP/2 transport.
func WithHTTP2(enabled bool) Option {
	return func(o *ClientOptions) {
		o.HTTP2 = enabled
	}
}

// WithHeader adds a static header merged into every request.
func WithHeader(key, value string) Option {
	return func(o *ClientOptions) {
		o.Headers[key] = value
	}
}

// WithTimeout sets the per-attempt request deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *ClientOptions) {
		o.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(o *ClientOptions) {
		o.MaxRetries = n
	}
}

// WithInitialBackoff sets the initial backoff duration.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *ClientOptions) {
		o.InitialBackoff = d
	}
}

// WithMaxBackoff sets the backoff cap.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *ClientOptions) {
		o.MaxBackoff = d
	}
}

// WithBackoffMultiplier sets the backoff multiplier.
func WithBackoffMultiplier(f float64) Option {
	return func(o *ClientOptions) {
		o.BackoffMultiplier = f
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(o *ClientOptions) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		o.Jitter = f
	}
}

// WithBackoffStrategy selects the delay calculation algorithm.
func WithBackoffStrategy(s BackoffStrategy) Option {
	return func(o *ClientOptions) {
		o.BackoffStrategy = s
	}
}

// WithLogger sets a structured logger for debug output.
func WithLogger(logger Logger) Option {
	return func(o *ClientOptions) {
		o.Logger = logger
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(o *ClientOptions) {
		o.Metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(o *ClientOptions) {
		o.Metrics = collector
	}
}

// WithHTTPClient sets a custom HTTP client; its transport is used as-is
// and the HTTP2 option is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *ClientOptions) {
		o.HTTPClient = client
	}
}

// validateConfiguration checks the resolved options for values that would
// misbehave at runtime. The result is surfaced through
// Client.ValidationError and from every call on an invalid client.
func (o *ClientOptions) validateConfiguration() error {
	var problems []string

	if o.BaseURL == "" {
		problems = append(problems, "base URL must not be empty")
	}
	if o.TokenURL == "" {
		problems = append(problems, "token URL must not be empty")
	}
	if o.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if o.MaxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if o.MaxRetries > 100 {
		problems = append(problems, "maxRetries > 100 may cause excessive resource usage")
	}
	if o.InitialBackoff <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if o.MaxBackoff < o.InitialBackoff {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if o.BackoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if o.Jitter < 0 || o.Jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	if o.CacheEnabled {
		if o.CacheTTL <= 0 {
			problems = append(problems, "cacheTTL must be positive when the cache is enabled")
		}
		if o.CacheTTL > 24*time.Hour {
			problems = append(problems, "cacheTTL > 24h may cause stale data issues")
		}
		if o.CacheMaxSize <= 0 {
			problems = append(problems, "cacheMaxSize must be positive when the cache is enabled")
		}
	}
	if o.RateLimitRate > 1000000 {
		problems = append(problems, "rateLimitRate > 1M is unrealistic for a 60s window")
	}

	if len(problems) > 0 {
		return &APIError{
			Kind:    KindValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}
