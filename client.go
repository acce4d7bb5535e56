package go24so

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/net/http2"
)

// Client is the blocking 24SevenOffice API client. One instance owns its
// token, cache and rate-limiter state exclusively (clients are never
// shared across organizations) and is safe for concurrent use from
// multiple goroutines.
type Client struct {
	options  ClientOptions
	pipeline *pipeline
	creds    *CredentialManager

	Customers         *CustomersService
	Products          *ProductsService
	ProductCategories *ProductCategoriesService
	Invoices          *InvoicesService

	closeOnce       sync.Once
	validationError error
}

// New constructs a Client for one organization using the provided
// functional options. New never fails; check IsValid / ValidationError
// after construction. Every API call on an invalid client fails with the
// stored validation error.
func New(clientID, clientSecret, organizationID string, opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	c := &Client{options: options}
	c.validationError = options.validateConfiguration()

	httpClient := options.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if options.HTTP2 {
			if err := http2.ConfigureTransport(transport); err != nil && c.validationError == nil {
				c.validationError = &APIError{Kind: KindValidation, Message: "configuring HTTP/2 transport", Cause: err}
			}
		}
		httpClient = &http.Client{Transport: transport}
	}

	c.creds = NewCredentialManager(Credentials{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		OrganizationID: organizationID,
	}, options.TokenURL, httpClient)
	c.creds.logger = options.Logger
	c.creds.metrics = options.Metrics

	var cache Cache
	if options.CacheEnabled {
		cache = NewMemoryCache(options.CacheMaxSize)
	}

	c.pipeline = &pipeline{
		httpClient: httpClient,
		baseURL:    options.BaseURL,
		creds:      c.creds,
		limiter:    NewRateLimiter(options.RateLimitRate),
		cache:      cache,
		cacheTTL:   options.CacheTTL,
		retryPolicy: NewDefaultRetryPolicyWithStrategy(
			options.MaxRetries,
			options.InitialBackoff,
			options.MaxBackoff,
			options.BackoffMultiplier,
			options.Jitter,
			options.BackoffStrategy,
		),
		maxRetries: options.MaxRetries,
		headers:    options.Headers,
		timeout:    options.Timeout,
		metrics:    options.Metrics,
		logger:     options.Logger,
		closed:     make(chan struct{}),
	}

	c.Customers = &CustomersService{client: c}
	c.Products = &ProductsService{client: c}
	c.ProductCategories = &ProductCategoriesService{client: c}
	c.Invoices = &InvoicesService{client: c}

	return c
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Options returns a copy of the resolved configuration.
func (c *Client) Options() ClientOptions {
	return c.options
}

// Execute runs a prepared descriptor through the request pipeline. Resource
// services use this entry point; it is exported for endpoints the typed
// surface does not cover yet.
func (c *Client) Execute(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	return c.pipeline.Execute(ctx, desc)
}

// Get performs a GET against an API path with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	desc := NewDescriptor(http.MethodGet, path)
	for key, value := range query {
		desc.WithQuery(key, value)
	}
	return c.Execute(ctx, desc)
}

// Post performs a POST with a JSON body against an API path.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Execute(ctx, NewDescriptor(http.MethodPost, path).WithBody(body))
}

// Patch performs a PATCH with a JSON body against an API path.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Execute(ctx, NewDescriptor(http.MethodPatch, path).WithBody(body))
}

// Put performs a PUT with a JSON body against an API path.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Execute(ctx, NewDescriptor(http.MethodPut, path).WithBody(body))
}

// Delete performs a DELETE against an API path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Execute(ctx, NewDescriptor(http.MethodDelete, path))
}

// Close releases transport resources, wakes any rate-limiter waiters and
// fails subsequent calls with ErrClientClosed. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.pipeline.close()
		c.pipeline.httpClient.CloseIdleConnections()
	})
}
