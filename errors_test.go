package go24so

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"unauthorized", 401, `{"message":"bad token"}`, KindAuthentication},
		{"rate limited", 429, `{}`, KindRateLimit},
		{"not found", 404, `{}`, KindNotFound},
		{"bad request", 400, `{"message":"invalid name"}`, KindValidation},
		{"server error", 500, `{}`, KindTransient},
		{"bad gateway", 502, ``, KindTransient},
		{"conflict", 409, `{}`, KindAPI},
		{"forbidden", 403, `{}`, KindAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyResponse(tt.status, []byte(tt.body))
			if err.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", err.Kind, tt.kind)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyResponseEnvelope(t *testing.T) {
	err := classifyResponse(400, []byte(`{"code":"invalid_field","message":"name is required"}`))
	if err.Code != "invalid_field" {
		t.Errorf("Code = %q, want invalid_field", err.Code)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q", err.Message)
	}

	// OAuth2-style envelope.
	err = classifyResponse(401, []byte(`{"error":"invalid_client","error_description":"unknown client"}`))
	if err.Code != "invalid_client" {
		t.Errorf("Code = %q, want invalid_client", err.Code)
	}
	if err.Message != "unknown client" {
		t.Errorf("Message = %q, want unknown client", err.Message)
	}

	// No envelope falls back to the status text.
	err = classifyResponse(404, nil)
	if !strings.Contains(err.Message, http.StatusText(404)) {
		t.Errorf("Message = %q, want status text fallback", err.Message)
	}
}

func TestAPIErrorIs(t *testing.T) {
	err := &APIError{Kind: KindTransient, Message: "boom"}

	if !errors.Is(err, &APIError{Kind: KindTransient}) {
		t.Error("errors.Is failed for matching kind")
	}
	if errors.Is(err, &APIError{Kind: KindNotFound}) {
		t.Error("errors.Is matched a different kind")
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &APIError{Kind: KindTransient, Message: "wrapper", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to reach the cause")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		Kind:        KindTransient,
		StatusCode:  503,
		Message:     "service unavailable",
		Attempt:     3,
		MaxAttempts: 3,
		Exhausted:   true,
	}
	msg := err.Error()
	for _, want := range []string{"Transient", "503", "service unavailable", "4/4"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&APIError{Kind: KindTransient}) {
		t.Error("IsTransient(KindTransient) = false")
	}
	if !IsTransient(&APIError{Kind: KindRateLimit}) {
		t.Error("IsTransient(KindRateLimit) = false")
	}
	if IsTransient(&APIError{Kind: KindNotFound}) {
		t.Error("IsTransient(KindNotFound) = true")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("IsTransient(plain error) = true")
	}
	if IsTransient(nil) {
		t.Error("IsTransient(nil) = true")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&APIError{Kind: KindNotFound}) {
		t.Error("IsNotFound(KindNotFound) = false")
	}
	if IsNotFound(&APIError{Kind: KindAPI}) {
		t.Error("IsNotFound(KindAPI) = true")
	}
}
