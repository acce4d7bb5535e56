package go24so

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// maxResponseBody bounds how much of a response the pipeline drains.
const maxResponseBody = 10 * 1024 * 1024

// pipeline composes the reliability layers around every outbound call.
// Execution order per call: cache lookup, rate-limit admission, token
// attachment, attempt with retry (single top-level refresh-and-rerun on a
// rejected token), then cache update. Both client variants share one
// pipeline instance; all state it touches is safe for concurrent use.
type pipeline struct {
	httpClient  *http.Client
	baseURL     string
	creds       *CredentialManager
	limiter     *RateLimiter
	cache       Cache
	cacheTTL    time.Duration
	retryPolicy RetryPolicy
	maxRetries  int
	headers     map[string]string
	timeout     time.Duration
	metrics     *MetricsCollector
	logger      Logger

	closed chan struct{}
}

// Execute runs one descriptor through the full pipeline and returns the
// drained response or a classified *APIError.
func (p *pipeline) Execute(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	select {
	case <-p.closed:
		return nil, ErrClientClosed
	default:
	}

	start := time.Now()
	endpoint := desc.Path
	p.metrics.RecordRequestStart(desc.Method, endpoint)
	defer p.metrics.RecordRequestEnd(desc.Method, endpoint)

	cacheable := p.cache != nil && desc.ReadOnly()
	if cacheable {
		key := desc.CacheKey()
		if entry, found := p.cache.Get(key); found {
			if p.logger != nil {
				p.logger.Debug("Cache hit", "method", desc.Method, "key", key)
			}
			p.metrics.RecordCacheHit(endpoint)
			p.metrics.RecordRequest(desc.Method, endpoint, entry.StatusCode, time.Since(start))
			// Hand out a copy so a caller mutating the body cannot
			// poison later hits.
			return &Response{
				StatusCode: entry.StatusCode,
				Header:     entry.Header.Clone(),
				Body:       append([]byte(nil), entry.Body...),
			}, nil
		}
		p.metrics.RecordCacheMiss(endpoint)
		if p.logger != nil {
			p.logger.Debug("Cache miss", "method", desc.Method, "key", key)
		}
	}

	resp, err := p.executeOnce(ctx, desc, true)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	p.metrics.RecordRequest(desc.Method, endpoint, statusCode, time.Since(start))

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			p.metrics.RecordError(apiErr.Kind, desc.Method, endpoint)
		}
		return nil, err
	}

	if p.cache != nil {
		if desc.ReadOnly() {
			p.cache.Set(desc.CacheKey(), &CacheEntry{
				Body:       append([]byte(nil), resp.Body...),
				Header:     resp.Header.Clone(),
				StatusCode: resp.StatusCode,
			}, p.cacheTTL)
			p.metrics.RecordCacheSize(p.cache.Len())
		} else {
			root := resourceRoot(desc.Path)
			p.cache.InvalidatePrefix(root)
			if p.logger != nil {
				p.logger.Debug("Cache invalidated after write", "root", root)
			}
		}
	}

	return resp, nil
}

// executeOnce runs admission, auth and the attempt loop. When the server
// rejects the attached token with 401, the held token is dropped and the
// whole sequence reruns exactly once; a second 401 surfaces as an
// authentication failure.
func (p *pipeline) executeOnce(ctx context.Context, desc *RequestDescriptor, allowAuthRetry bool) (*Response, error) {
	if p.limiter != nil {
		waitStart := time.Now()
		if err := p.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		waited := time.Since(waitStart)
		p.metrics.RecordRateLimiterWait(waited, p.limiter.remaining())
		if waited > time.Second && p.logger != nil {
			p.logger.Debug("Rate limit wait", "waited", waited, "path", desc.Path)
		}
	}

	resp, apiErr := p.attemptWithRetry(ctx, desc)
	if apiErr != nil {
		if allowAuthRetry && apiErr.Kind == KindAuthentication && apiErr.StatusCode == http.StatusUnauthorized {
			if p.logger != nil {
				p.logger.Debug("Token rejected, refreshing once", "path", desc.Path)
			}
			p.creds.Invalidate()
			return p.executeOnce(ctx, desc, false)
		}
		return nil, apiErr
	}
	return resp, nil
}

// attemptWithRetry performs HTTP attempts under the retry policy. Only
// transient failures (transport errors, timeouts, 429, 5xx) are retried;
// everything else is classified and returned immediately. 401 is never
// retried here; the caller owns the one-shot token refresh.
func (p *pipeline) attemptWithRetry(ctx context.Context, desc *RequestDescriptor) (*Response, *APIError) {
	endpoint := desc.Path

	var payload []byte
	if desc.Body != nil {
		encoded, err := json.Marshal(desc.Body)
		if err != nil {
			return nil, &APIError{Kind: KindValidation, Message: "encoding request body", Cause: err}
		}
		payload = encoded
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			p.metrics.RecordRetry(desc.Method, endpoint, attempt)
			if p.logger != nil {
				p.logger.Info("Retry attempt", "attempt", attempt, "maxRetries", p.maxRetries, "path", desc.Path)
			}
		}

		token, err := p.creds.Token(ctx)
		if err != nil {
			return nil, asAPIError(err, KindAuthentication)
		}

		httpResp, body, doErr := p.attempt(ctx, desc, payload, token)

		// A cancelled caller never retries.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &APIError{
				Kind:        KindTransient,
				Message:     "request aborted",
				Cause:       ctxErr,
				Attempt:     attempt,
				MaxAttempts: p.maxRetries,
			}
		}

		if doErr != nil {
			if delay, retry := p.retryPolicy.ShouldRetry(nil, doErr, attempt); retry {
				if err := sleepContext(ctx, delay); err != nil {
					return nil, &APIError{Kind: KindTransient, Message: "retry aborted", Cause: err, Attempt: attempt, MaxAttempts: p.maxRetries}
				}
				continue
			}
			return nil, &APIError{
				Kind:        KindTransient,
				Message:     transportMessage(doErr),
				Cause:       doErr,
				Attempt:     attempt,
				MaxAttempts: p.maxRetries,
				Exhausted:   attempt >= p.maxRetries && p.maxRetries > 0,
			}
		}

		if httpResp.StatusCode < 400 {
			return &Response{
				StatusCode: httpResp.StatusCode,
				Header:     httpResp.Header,
				Body:       body,
			}, nil
		}

		if httpResp.StatusCode == http.StatusTooManyRequests {
			if hint := parseRetryAfter(httpResp.Header.Get("Retry-After")); hint > 0 {
				p.limiter.noteRetryAfter(hint)
			}
		}

		apiErr := classifyResponse(httpResp.StatusCode, body)
		apiErr.Attempt = attempt
		apiErr.MaxAttempts = p.maxRetries

		if apiErr.Kind == KindAuthentication {
			return nil, apiErr
		}

		if delay, retry := p.retryPolicy.ShouldRetry(httpResp, nil, attempt); retry {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, &APIError{Kind: KindTransient, Message: "retry aborted", Cause: err, Attempt: attempt, MaxAttempts: p.maxRetries}
			}
			continue
		}

		if IsTransient(apiErr) && attempt >= p.maxRetries && p.maxRetries > 0 {
			apiErr.Exhausted = true
		}
		return nil, apiErr
	}
}

// attempt performs a single bounded HTTP exchange and drains the body.
func (p *pipeline) attempt(ctx context.Context, desc *RequestDescriptor, payload []byte, token *Token) (*http.Response, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := p.baseURL + desc.Path
	if encoded := desc.Query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, desc.Method, u, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	for key, value := range p.headers {
		req.Header.Set(key, value)
	}
	for key, values := range desc.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", token.AuthorizationValue())
	req.Header.Set(organizationHeader, p.creds.creds.OrganizationID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}

// close marks the pipeline closed and wakes limiter waiters.
func (p *pipeline) close() {
	select {
	case <-p.closed:
		return
	default:
		close(p.closed)
	}
	p.limiter.Close()
}

// sleepContext waits for d, aborting early if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transportMessage names the failure mode of a transport error.
func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return "network request failed"
}

// asAPIError returns err as an *APIError, wrapping foreign errors under
// the given kind.
func asAPIError(err error, kind ErrorKind) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: kind, Message: err.Error(), Cause: err}
}
