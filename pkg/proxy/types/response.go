package types

import (
	"encoding/json"
	"net/http"
)

// CallerResponse is what the relay sends back for one request.
type CallerResponse struct {
	// StatusCode is the HTTP status, always within 100..599.
	StatusCode int

	// Body is a complete JSON document.
	Body json.RawMessage
}

// NewJSONResponse marshals v into a CallerResponse. A value that cannot be
// marshalled yields a 500 with a generic error body.
func NewJSONResponse(status int, v any) CallerResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return NewErrorResponse(http.StatusInternalServerError, MessageInternalError, nil)
	}
	return CallerResponse{StatusCode: status, Body: body}
}
