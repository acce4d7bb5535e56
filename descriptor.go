package go24so

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestDescriptor is the normalized representation of one outbound call:
// method, path, query parameters, headers and an optional JSON body. It is
// the unit of execution for the pipeline and, after normalization, the
// cache key for read-only requests. Treat a descriptor as immutable once it
// has been handed to Execute.
type RequestDescriptor struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-marshaled into the request body when non-nil.
	Body any
}

// NewDescriptor creates a descriptor for the given method and API path.
// The path is relative to the client's base URL.
func NewDescriptor(method, path string) *RequestDescriptor {
	return &RequestDescriptor{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// WithQuery adds a query parameter and returns the descriptor for chaining.
func (d *RequestDescriptor) WithQuery(key, value string) *RequestDescriptor {
	d.Query.Add(key, value)
	return d
}

// WithHeader sets a request header and returns the descriptor for chaining.
func (d *RequestDescriptor) WithHeader(key, value string) *RequestDescriptor {
	d.Header.Set(key, value)
	return d
}

// WithBody sets the JSON body payload and returns the descriptor for chaining.
func (d *RequestDescriptor) WithBody(body any) *RequestDescriptor {
	d.Body = body
	return d
}

// ReadOnly reports whether the descriptor denotes a cacheable, side-effect
// free request.
func (d *RequestDescriptor) ReadOnly() bool {
	switch d.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// CacheKey returns the normalized key identifying this request in the
// response cache: path + sorted query parameters + body hash. The method is
// omitted because only read-only requests are ever cached; keeping the key
// path-prefixed lets mutating calls invalidate by resource root.
func (d *RequestDescriptor) CacheKey() string {
	var b strings.Builder
	b.WriteString(d.Path)
	if encoded := d.Query.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}
	if d.Body != nil {
		if payload, err := json.Marshal(d.Body); err == nil {
			sum := sha256.Sum256(payload)
			fmt.Fprintf(&b, "#%x", sum[:8])
		}
	}
	return b.String()
}

// resourceRoot returns the first path segment of an API path, e.g.
// "/customers" for "/customers/42". Mutating calls invalidate every cached
// entry under this root so stale list responses are never served after a
// write.
func resourceRoot(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return "/" + trimmed
}
