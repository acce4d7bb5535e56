package go24so

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fjordworks/go24so/internal/singleflight"
)

const (
	// DefaultTokenURL is the 24SevenOffice OAuth2 token endpoint.
	DefaultTokenURL = "https://rest.api.24sevenoffice.com/oauth2/token"

	// tokenScope is the fixed OAuth2 scope for the REST API.
	tokenScope = "https://api.24sevenoffice.com/rest"

	// organizationHeader routes the token exchange to the right organization.
	organizationHeader = "X-24so-organizationId"

	// tokenExpiryMargin treats a token as expired slightly early to avoid
	// racing the server-side expiry.
	tokenExpiryMargin = 30 * time.Second

	tokenExchangeTimeout = 30 * time.Second
)

// Credentials holds the OAuth2 client-credentials identity for one
// organization. Immutable after construction.
type Credentials struct {
	ClientID       string
	ClientSecret   string
	OrganizationID string
}

// Token is an OAuth2 access token plus its computed expiry. It is replaced
// wholesale on refresh, never mutated.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used, applying the expiry
// safety margin.
func (t *Token) Valid() bool {
	return t != nil && t.AccessToken != "" && time.Now().Before(t.ExpiresAt.Add(-tokenExpiryMargin))
}

// AuthorizationValue returns the Authorization header value for the token.
func (t *Token) AuthorizationValue() string {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + t.AccessToken
}

// CredentialManager performs the OAuth2 client-credentials exchange and
// caches the resulting token. Refreshes are coalesced: concurrent callers
// during a refresh wait for the single in-flight exchange instead of
// triggering duplicates. Safe for concurrent use.
type CredentialManager struct {
	creds      Credentials
	tokenURL   string
	httpClient *http.Client
	logger     Logger
	metrics    *MetricsCollector

	mu     sync.RWMutex
	token  *Token
	flight *singleflight.Group
}

// NewCredentialManager creates a manager for one organization's credentials.
// The supplied HTTP client is shared with the data-plane transport.
func NewCredentialManager(creds Credentials, tokenURL string, httpClient *http.Client) *CredentialManager {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: tokenExchangeTimeout}
	}
	return &CredentialManager{
		creds:      creds,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		flight:     singleflight.New(),
	}
}

// Token returns a valid token, performing or joining a coalesced refresh
// when the held token is absent or within the expiry margin. Exchange
// failures surface as KindAuthentication errors; the manager never retries
// internally.
func (m *CredentialManager) Token(ctx context.Context) (*Token, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token.Valid() {
		return token, nil
	}

	val, err, owner := m.flight.Do("token", func() (any, error) {
		// Re-check under the flight: a refresh that completed while this
		// caller was acquiring the slot already produced a fresh token.
		m.mu.RLock()
		current := m.token
		m.mu.RUnlock()
		if current.Valid() {
			return current, nil
		}

		// The exchange serves every coalesced waiter, so it must not die
		// with the triggering caller's context. Detach it and rely on the
		// exchange's own timeout.
		fresh, err := m.exchange(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.token = fresh
		m.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	if owner && m.metrics != nil {
		m.metrics.RecordTokenRefresh()
	}
	return val.(*Token), nil
}

// Invalidate drops the held token, forcing the next Token call to refresh.
// The pipeline calls this when the server rejects a token with 401.
func (m *CredentialManager) Invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
}

// exchange performs one OAuth2 client-credentials request.
func (m *CredentialManager) exchange(ctx context.Context) (*Token, error) {
	if m.logger != nil {
		m.logger.Debug("Refreshing access token", "tokenURL", m.tokenURL, "organizationID", m.creds.OrganizationID)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)
	form.Set("scope", tokenScope)

	ctx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: "building token request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(organizationHeader, m.creds.OrganizationID)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: "token exchange failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: "reading token response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		_ = json.Unmarshal(body, &envelope)
		message := envelope.ErrorDescription
		if message == "" {
			message = envelope.Error
		}
		if message == "" {
			message = fmt.Sprintf("failed to obtain token: HTTP %d", resp.StatusCode)
		}
		return nil, &APIError{
			Kind:       KindAuthentication,
			StatusCode: resp.StatusCode,
			Code:       envelope.Error,
			Message:    message,
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: "malformed token response", Cause: err}
	}
	if payload.AccessToken == "" || payload.ExpiresIn <= 0 {
		return nil, &APIError{Kind: KindAuthentication, Message: "token response missing access_token or expires_in"}
	}

	return &Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresAt:   time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}
