package go24so

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxBatchSize is the API's documented ceiling on sub-requests per
// batch call.
const DefaultMaxBatchSize = 20

const batchPath = "/batch"

// batchItem is one sub-request on the wire.
type batchItem struct {
	ID          string            `json:"id"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Body        any               `json:"body,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
}

// batchResponseItem is one sub-response on the wire.
type batchResponseItem struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// BatchRequest collects up to maxSize sub-requests for a single /batch
// round trip. Not safe for concurrent use; build it, send it, read the
// BatchResponse.
type BatchRequest struct {
	maxSize  int
	requests []batchItem
	ids      []string
}

// NewBatchRequest returns an empty batch bounded by DefaultMaxBatchSize.
func NewBatchRequest() *BatchRequest {
	return NewBatchRequestSize(DefaultMaxBatchSize)
}

// NewBatchRequestSize returns an empty batch with a custom ceiling.
func NewBatchRequestSize(maxSize int) *BatchRequest {
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}
	return &BatchRequest{maxSize: maxSize}
}

// Add queues a sub-request and returns its tracking ID. A generated UUID
// is used when requestID is empty. Returns ErrBatchFull past the ceiling.
func (b *BatchRequest) Add(method, path, requestID string, body any, queryParams map[string]string) (string, error) {
	if len(b.requests) >= b.maxSize {
		return "", ErrBatchFull
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	b.requests = append(b.requests, batchItem{
		ID:          requestID,
		Method:      strings.ToUpper(method),
		Path:        path,
		Body:        body,
		QueryParams: queryParams,
	})
	b.ids = append(b.ids, requestID)
	return requestID, nil
}

// AddGet queues a GET sub-request.
func (b *BatchRequest) AddGet(path, requestID string) (string, error) {
	return b.Add(http.MethodGet, path, requestID, nil, nil)
}

// Clear drops all queued sub-requests.
func (b *BatchRequest) Clear() {
	b.requests = nil
	b.ids = nil
}

// Len reports the number of queued sub-requests.
func (b *BatchRequest) Len() int { return len(b.requests) }

// IsEmpty reports whether no sub-requests are queued.
func (b *BatchRequest) IsEmpty() bool { return len(b.requests) == 0 }

// IsFull reports whether the batch reached its ceiling.
func (b *BatchRequest) IsFull() bool { return len(b.requests) >= b.maxSize }

// RequestIDs returns the tracking IDs in insertion order.
func (b *BatchRequest) RequestIDs() []string {
	out := make([]string, len(b.ids))
	copy(out, b.ids)
	return out
}

// BatchResponse indexes the per-sub-request outcomes of a batch call.
type BatchResponse struct {
	ids       []string
	responses map[string]batchResponseItem
}

// StatusCode returns the status of one sub-response, or 0 when the ID is
// unknown.
func (r *BatchResponse) StatusCode(requestID string) int {
	return r.responses[requestID].Status
}

// Body returns the raw body of one sub-response, or nil when the ID is
// unknown.
func (r *BatchResponse) Body(requestID string) json.RawMessage {
	return r.responses[requestID].Body
}

// JSON unmarshals one sub-response body into v.
func (r *BatchResponse) JSON(requestID string, v any) error {
	item, ok := r.responses[requestID]
	if !ok {
		return &APIError{Kind: KindNotFound, Message: "no batch response for id " + requestID}
	}
	if err := json.Unmarshal(item.Body, v); err != nil {
		return &APIError{Kind: KindValidation, StatusCode: item.Status, Message: "error parsing batch response", Cause: err}
	}
	return nil
}

// IsSuccessful reports whether one sub-request returned a 2xx status.
func (r *BatchResponse) IsSuccessful(requestID string) bool {
	status := r.responses[requestID].Status
	return status >= 200 && status < 300
}

// AllSuccessful reports whether every sub-request returned a 2xx status.
func (r *BatchResponse) AllSuccessful() bool {
	for _, id := range r.ids {
		if !r.IsSuccessful(id) {
			return false
		}
	}
	return true
}

// SendBatch posts the queued sub-requests as one /batch call through the
// full pipeline. Cached entries under the resource roots of any mutating
// sub-request are invalidated after a successful call.
func (c *Client) SendBatch(ctx context.Context, batch *BatchRequest) (*BatchResponse, error) {
	if batch.IsEmpty() {
		return nil, ErrBatchEmpty
	}

	desc := NewDescriptor(http.MethodPost, batchPath).WithBody(struct {
		Requests []batchItem `json:"requests"`
	}{Requests: batch.requests})

	resp, err := c.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Responses []batchResponseItem `json:"responses"`
	}
	if err := resp.JSON(&envelope); err != nil {
		return nil, err
	}

	out := &BatchResponse{
		ids:       batch.RequestIDs(),
		responses: make(map[string]batchResponseItem, len(envelope.Responses)),
	}
	for _, item := range envelope.Responses {
		if item.ID != "" {
			out.responses[item.ID] = item
		}
	}

	c.invalidateBatchWrites(batch)

	return out, nil
}

// invalidateBatchWrites drops cached reads shadowed by mutating
// sub-requests. The pipeline's own write invalidation only sees /batch, so
// the per-sub-request roots are handled here.
func (c *Client) invalidateBatchWrites(batch *BatchRequest) {
	if c.pipeline.cache == nil {
		return
	}
	seen := make(map[string]struct{})
	for _, item := range batch.requests {
		switch item.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			continue
		}
		root := resourceRoot(item.Path)
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		c.pipeline.cache.InvalidatePrefix(root)
	}
}

// batchGetByID is the shared many-IDs fetch behind the services' BatchGet.
// Failed sub-requests are omitted from the result rather than failing the
// whole call.
func batchGetByID[T any](ctx context.Context, c *Client, basePath string, ids []string) (map[string]*T, error) {
	out := make(map[string]*T, len(ids))

	for start := 0; start < len(ids); start += DefaultMaxBatchSize {
		end := start + DefaultMaxBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		batch := NewBatchRequest()
		for _, id := range ids[start:end] {
			if _, err := batch.AddGet(basePath+"/"+id, id); err != nil {
				return nil, err
			}
		}

		resp, err := c.SendBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for _, id := range ids[start:end] {
			if !resp.IsSuccessful(id) {
				continue
			}
			var record T
			if err := resp.JSON(id, &record); err != nil {
				continue
			}
			out[id] = &record
		}
	}

	return out, nil
}
