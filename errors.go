package go24so

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an *APIError so callers can branch programmatically.
type ErrorKind string

const (
	// KindAuthentication covers failed credential exchanges and tokens the
	// server keeps rejecting after a refresh.
	KindAuthentication ErrorKind = "Authentication"
	// KindTransient covers network errors, timeouts and 5xx responses; it is
	// surfaced only after the retry policy gives up.
	KindTransient ErrorKind = "Transient"
	// KindRateLimit covers 429 responses the server still returns after
	// local limiting and retries.
	KindRateLimit ErrorKind = "RateLimit"
	// KindValidation covers request payloads or response bodies that fail
	// schema constraints.
	KindValidation ErrorKind = "Validation"
	// KindNotFound covers 404 responses.
	KindNotFound ErrorKind = "NotFound"
	// KindAPI is the catch-all for other non-2xx responses, carrying the
	// server's code and message.
	KindAPI ErrorKind = "API"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrClientClosed is returned for calls made after Close.
	ErrClientClosed = errors.New("go24so: client closed")

	// ErrBatchFull is returned when adding to a batch at capacity.
	ErrBatchFull = errors.New("go24so: batch is full")

	// ErrBatchEmpty is returned when dispatching a batch with no requests.
	ErrBatchEmpty = errors.New("go24so: batch is empty")
)

// APIError is the classified error type for every non-success outcome of
// the pipeline. It carries enough structure (kind, HTTP status, server code
// and message) for callers to branch without string matching.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	// Code is the machine-readable error code from the server envelope.
	Code    string
	Message string
	Cause   error

	// Attempt is the zero-based index of the final attempt; MaxAttempts is
	// the configured retry ceiling. Exhausted marks a transient failure that
	// was retried and still failed, as opposed to one that never worked.
	Attempt     int
	MaxAttempts int
	Exhausted   bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Exhausted {
		msg = fmt.Sprintf("%s (retries exhausted after attempt %d/%d)", msg, e.Attempt+1, e.MaxAttempts+1)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error kinds for errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*APIError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed
// on retry: network errors, timeouts, 5xx responses and 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindTransient, KindRateLimit:
			return true
		default:
			return false
		}
	}
	return false
}

// IsNotFound reports whether err is a classified 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// errorEnvelope is the machine-readable error body the API returns on
// non-2xx responses. The OAuth2 token endpoint uses the error /
// error_description pair instead.
type errorEnvelope struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// classifyResponse maps a non-2xx response body to an *APIError. The body
// has already been drained by the pipeline.
func classifyResponse(statusCode int, body []byte) *APIError {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	code := envelope.Code
	if code == "" {
		code = envelope.Error
	}
	message := envelope.Message
	if message == "" {
		message = envelope.ErrorDescription
	}
	if message == "" {
		message = fmt.Sprintf("HTTP error %d: %s", statusCode, http.StatusText(statusCode))
	}

	kind := KindAPI
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusBadRequest:
		kind = KindValidation
	case statusCode >= 500:
		kind = KindTransient
	}

	return &APIError{
		Kind:       kind,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}
