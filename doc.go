// Package go24so is a typed Go client for the 24SevenOffice REST API with
// built-in reliability primitives:
//
//   - OAuth2 client-credentials authentication with coalesced token refresh
//   - Fixed-window rate limiting (requests per minute, blocking, fair)
//   - In-memory LRU response caching with TTL and write invalidation
//   - Retries with exponential backoff + jitter and Retry-After support
//   - Prometheus metrics and lightweight structured debug logging
//
// The client exposes one service per API resource (customers, products,
// product categories, invoices) plus a request-batching convenience layer.
// Every outbound call flows through the same pipeline: cache lookup,
// rate-limit admission, token attachment, attempt with retry, cache update.
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Identical semantics for the blocking Client and the future-based
//     AsyncClient, which share one pipeline
//
// Typical usage:
//
//	client := go24so.New(clientID, clientSecret, orgID,
//	    go24so.WithRateLimit(60),
//	    go24so.WithCacheTTL(5*time.Minute),
//	)
//	defer client.Close()
//	customers, err := client.Customers.List(ctx, &go24so.CustomerListOptions{Page: 1})
//
// Errors are classified (*APIError with a Kind) so callers can branch on
// authentication failures, not-found, validation problems, rate limiting and
// exhausted transient retries without string matching.
package go24so
