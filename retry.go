package go24so

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	internalbackoff "github.com/fjordworks/go24so/internal/backoff"
)

// RetryPolicy decides whether a failed attempt should be retried and after
// what delay. resp may be nil when err is a transport failure.
type RetryPolicy interface {
	ShouldRetry(resp *http.Response, err error, attempt int) (time.Duration, bool)
}

// BackoffStrategy selects the delay calculation algorithm.
type BackoffStrategy int

const (
	// ExponentialJitter grows the delay exponentially with uniform jitter.
	ExponentialJitter BackoffStrategy = iota
	// DecorrelatedJitter uses the AWS decorrelated-jitter formula.
	DecorrelatedJitter
)

// DefaultRetryPolicy retries transient failures (network errors, timeouts,
// 429 and 5xx responses) with bounded attempts and exponential delay,
// honoring server Retry-After hints. Non-transient responses propagate
// immediately.
type DefaultRetryPolicy struct {
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffCalculator internalbackoff.Strategy
}

// NewDefaultRetryPolicy creates a retry policy with the exponential-jitter
// backoff strategy.
func NewDefaultRetryPolicy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) *DefaultRetryPolicy {
	return NewDefaultRetryPolicyWithStrategy(maxRetries, initialBackoff, maxBackoff, multiplier, jitter, ExponentialJitter)
}

// NewDefaultRetryPolicyWithStrategy creates a retry policy with a specific
// backoff strategy.
func NewDefaultRetryPolicyWithStrategy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64, strategy BackoffStrategy) *DefaultRetryPolicy {
	policy := &DefaultRetryPolicy{
		maxRetries:        maxRetries,
		initialBackoff:    initialBackoff,
		maxBackoff:        maxBackoff,
		backoffMultiplier: multiplier,
		jitter:            jitter,
	}
	switch strategy {
	case DecorrelatedJitter:
		policy.backoffCalculator = internalbackoff.DecorrelatedJitterStrategy{}
	default:
		policy.backoffCalculator = internalbackoff.ExponentialJitterStrategy{}
	}
	return policy
}

// MaxRetries returns the configured retry ceiling (retries, not total
// attempts).
func (p *DefaultRetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// ShouldRetry implements the RetryPolicy interface.
func (p *DefaultRetryPolicy) ShouldRetry(resp *http.Response, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxRetries {
		return 0, false
	}

	shouldRetry := false
	var delay time.Duration

	if err != nil {
		// Transport errors and timeouts are retryable.
		shouldRetry = true
	} else if resp != nil {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			shouldRetry = true
			delay = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
	}

	if !shouldRetry {
		return 0, false
	}

	if delay == 0 {
		delay = p.backoffCalculator.Calculate(attempt, p.initialBackoff, p.maxBackoff, p.backoffMultiplier, p.jitter)
	}

	return delay, true
}

// parseRetryAfter parses a Retry-After header value. Both delay-seconds
// and HTTP-date formats are supported; results are capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
