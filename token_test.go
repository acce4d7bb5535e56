package go24so

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCredentialManagerExchange(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "id" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostForm.Get("scope"); got != tokenScope {
			t.Errorf("scope = %q", got)
		}
		if got := r.Header.Get(organizationHeader); got != "org-1" {
			t.Errorf("organization header = %q", got)
		}
		jsonResponse(w, http.StatusOK, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})

	manager := NewCredentialManager(Credentials{ClientID: "id", ClientSecret: "secret", OrganizationID: "org-1"}, server.URL, nil)

	token, err := manager.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken != "tok" {
		t.Errorf("AccessToken = %q, want tok", token.AccessToken)
	}
	if got := token.AuthorizationValue(); got != "Bearer tok" {
		t.Errorf("AuthorizationValue() = %q", got)
	}

	// A valid cached token is reused without another exchange.
	if _, err := manager.Token(context.Background()); err != nil {
		t.Fatalf("second Token() error = %v", err)
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestCredentialManagerCoalescesRefreshes(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		jsonResponse(w, http.StatusOK, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})

	manager := NewCredentialManager(Credentials{OrganizationID: "org-1"}, server.URL, nil)

	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = manager.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1 coalesced refresh", got)
	}
}

func TestCredentialManagerRefreshSurvivesTriggerCancellation(t *testing.T) {
	var exchanges atomic.Int64
	release := make(chan struct{})
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonResponse(w, http.StatusOK, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})

	manager := NewCredentialManager(Credentials{OrganizationID: "org-1"}, server.URL, nil)

	// First caller starts the refresh, then abandons it mid-exchange.
	triggerCtx, cancel := context.WithCancel(context.Background())
	triggerDone := make(chan struct{})
	go func() {
		defer close(triggerDone)
		_, _ = manager.Token(triggerCtx)
	}()
	time.Sleep(30 * time.Millisecond)

	// Second caller joins the in-flight refresh with a live context.
	waiterErr := make(chan error, 1)
	var waiterToken *Token
	go func() {
		token, err := manager.Token(context.Background())
		waiterToken = token
		waiterErr <- err
	}()
	time.Sleep(30 * time.Millisecond)

	cancel()
	close(release)

	select {
	case err := <-waiterErr:
		if err != nil {
			t.Fatalf("waiter Token() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never completed")
	}
	if waiterToken == nil || waiterToken.AccessToken != "tok" {
		t.Errorf("waiter token = %+v, want the refreshed token", waiterToken)
	}
	<-triggerDone
	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestCredentialManagerInvalidateForcesRefresh(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})

	manager := NewCredentialManager(Credentials{OrganizationID: "org-1"}, server.URL, nil)

	if _, err := manager.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	manager.Invalidate()
	if _, err := manager.Token(context.Background()); err != nil {
		t.Fatalf("Token() after Invalidate error = %v", err)
	}
	if got := exchanges.Load(); got != 2 {
		t.Errorf("exchanges = %d, want 2", got)
	}
}

func TestCredentialManagerExchangeFailure(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusUnauthorized, `{"error":"invalid_client","error_description":"unknown client"}`)
	})

	manager := NewCredentialManager(Credentials{OrganizationID: "org-1"}, server.URL, nil)

	_, err := manager.Token(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Kind != KindAuthentication {
		t.Errorf("Kind = %s, want Authentication", apiErr.Kind)
	}
	if apiErr.Message != "unknown client" {
		t.Errorf("Message = %q, want unknown client", apiErr.Message)
	}
}

func TestCredentialManagerMalformedResponse(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"token_type":"Bearer"}`)
	})

	manager := NewCredentialManager(Credentials{OrganizationID: "org-1"}, server.URL, nil)

	_, err := manager.Token(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindAuthentication {
		t.Errorf("error = %v, want KindAuthentication for missing access_token", err)
	}
}

func TestTokenValid(t *testing.T) {
	tests := []struct {
		name  string
		token *Token
		want  bool
	}{
		{"nil", nil, false},
		{"empty", &Token{}, false},
		{"fresh", &Token{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"expired", &Token{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Minute)}, false},
		{"inside margin", &Token{AccessToken: "t", ExpiresAt: time.Now().Add(10 * time.Second)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
