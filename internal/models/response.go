package models

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the transport-agnostic HTTP response value shared by all
// request executors. Synthesized responses (EMR Serverless fallback)
// produce this type directly instead of impersonating a transport
// response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// NewJSONResponse marshals v into a Response with the given status.
func NewJSONResponse(status int, v interface{}) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response body: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return &Response{Status: status, Headers: headers, Body: body}, nil
}

// IsError reports whether the response carries an HTTP error status.
func (r *Response) IsError() bool {
	return r.Status >= 400
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
