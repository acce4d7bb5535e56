package go24so

import (
	"encoding/json"
	"net/http"
)

// Response is the decoded-payload carrier the pipeline returns: status,
// headers and the fully drained body. Resource services unmarshal Body
// into typed records.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON unmarshals the response body into v, surfacing parse failures as
// KindValidation errors.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &APIError{
			Kind:       KindValidation,
			StatusCode: r.StatusCode,
			Message:    "error parsing response",
			Cause:      err,
		}
	}
	return nil
}

// decodeInto parses a response into a single typed record.
func decodeInto[T any](resp *Response) (*T, error) {
	var out T
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// decodeList parses a response into a slice of typed records. Both a bare
// JSON array and an object with a "data" field are accepted, matching the
// API's two list shapes.
func decodeList[T any](resp *Response) ([]T, error) {
	var out []T
	if err := json.Unmarshal(resp.Body, &out); err == nil {
		return out, nil
	}

	var wrapper struct {
		Data []T `json:"data"`
	}
	if err := resp.JSON(&wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}
