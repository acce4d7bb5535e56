package go24so

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func responseWithStatus(status int, retryAfter string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	if retryAfter != "" {
		resp.Header.Set("Retry-After", retryAfter)
	}
	return resp
}

func TestDefaultRetryPolicyShouldRetry(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, 10*time.Millisecond, time.Second, 2.0, 0)

	tests := []struct {
		name    string
		resp    *http.Response
		err     error
		attempt int
		want    bool
	}{
		{"transport error", nil, errors.New("connection refused"), 0, true},
		{"500 response", responseWithStatus(500, ""), nil, 0, true},
		{"503 response", responseWithStatus(503, ""), nil, 1, true},
		{"429 response", responseWithStatus(429, ""), nil, 0, true},
		{"404 response", responseWithStatus(404, ""), nil, 0, false},
		{"400 response", responseWithStatus(400, ""), nil, 0, false},
		{"200 response", responseWithStatus(200, ""), nil, 0, false},
		{"past ceiling", responseWithStatus(500, ""), nil, 3, false},
		{"error past ceiling", nil, errors.New("timeout"), 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := policy.ShouldRetry(tt.resp, tt.err, tt.attempt)
			if got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultRetryPolicyDelayGrowsAndCaps(t *testing.T) {
	policy := NewDefaultRetryPolicy(10, 10*time.Millisecond, 80*time.Millisecond, 2.0, 0)

	var prev time.Duration
	for attempt := 0; attempt < 6; attempt++ {
		delay, retry := policy.ShouldRetry(responseWithStatus(500, ""), nil, attempt)
		if !retry {
			t.Fatalf("ShouldRetry() = false at attempt %d", attempt)
		}
		if delay > 80*time.Millisecond {
			t.Errorf("delay = %v at attempt %d, want <= cap", delay, attempt)
		}
		if delay < prev && delay != 80*time.Millisecond {
			t.Errorf("delay shrank from %v to %v before hitting the cap", prev, delay)
		}
		prev = delay
	}
}

func TestDefaultRetryPolicyHonorsRetryAfter(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, time.Millisecond, time.Minute, 2.0, 0)

	delay, retry := policy.ShouldRetry(responseWithStatus(429, "2"), nil, 0)
	if !retry {
		t.Fatal("ShouldRetry() = false for 429")
	}
	if delay != 2*time.Second {
		t.Errorf("delay = %v, want 2s from Retry-After", delay)
	}
}

func TestDefaultRetryPolicyMaxRetries(t *testing.T) {
	policy := NewDefaultRetryPolicy(4, time.Millisecond, time.Second, 2.0, 0.1)
	if got := policy.MaxRetries(); got != 4 {
		t.Errorf("MaxRetries() = %d, want 4", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{" 10 ", 10 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"garbage", 0},
		{"7200", time.Hour}, // capped
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	if got < 25*time.Second || got > 31*time.Second {
		t.Errorf("parseRetryAfter(HTTP date) = %v, want about 30s", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
	}
}

func TestZeroMaxRetriesDisablesRetry(t *testing.T) {
	policy := NewDefaultRetryPolicy(0, time.Millisecond, time.Second, 2.0, 0)

	if _, retry := policy.ShouldRetry(nil, errors.New("boom"), 0); retry {
		t.Error("ShouldRetry() = true with maxRetries 0")
	}
}
