package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/relay/pkg/proxy/types"
)

// DefaultMaxRequestBodySize is the inbound body limit used when the caller
// passes a non-positive limit (1MB).
const DefaultMaxRequestBodySize = 1 << 20

// ParseInboundRequest reads and validates the body of r.
//
// The body is limited to maxBytes. An empty body is treated as an absent
// payload, which fails validation with every field missing. The returned
// error is a *RequestError for unreadable, oversized or malformed bodies and
// a *MissingFieldsError when validation fails.
func ParseInboundRequest(r *http.Request, maxBytes int64) (*types.InboundRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBodySize
	}

	var body []byte
	if r.Body != nil {
		// Read one byte past the limit so an exact-size body is still accepted.
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
		if err != nil {
			return nil, &RequestError{
				StatusCode: http.StatusBadRequest,
				Message:    "failed to read request body",
				Details:    err.Error(),
			}
		}
		body = data
	}

	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    types.MessageBodyTooLarge,
			Details:    fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
		}
	}

	var candidate any
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &candidate); err != nil {
			return nil, &RequestError{
				StatusCode: http.StatusBadRequest,
				Message:    types.MessageInvalidJSON,
				Details:    err.Error(),
			}
		}
	}

	return ValidateCandidate(candidate)
}

// ValidateCandidate checks that candidate is a JSON object carrying a
// non-blank string for each of user_id, session_id and prompt.
//
// Anything that is not a map[string]any, including nil, reports all three
// fields missing. The returned request keeps the original field values.
func ValidateCandidate(candidate any) (*types.InboundRequest, error) {
	obj, _ := candidate.(map[string]any)

	values := make(map[string]string, len(types.RequiredFields))
	var missing []string
	for _, field := range types.RequiredFields {
		s, ok := obj[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			missing = append(missing, field)
			continue
		}
		values[field] = s
	}

	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	return &types.InboundRequest{
		UserID:    values[types.FieldUserID],
		SessionID: values[types.FieldSessionID],
		Prompt:    values[types.FieldPrompt],
	}, nil
}

// MissingFieldsError reports required fields that were absent or blank.
type MissingFieldsError struct {
	// Fields lists the missing field names in validation order.
	Fields []string
}

// Error implements the error interface.
func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// Response converts the error to a 400 caller response.
func (e *MissingFieldsError) Response() types.CallerResponse {
	return types.NewErrorResponse(http.StatusBadRequest, e.Error(), nil)
}

// RequestError represents a request body that could not be read or decoded.
type RequestError struct {
	StatusCode int
	Message    string
	Details    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// Response converts the error to a caller response.
func (e *RequestError) Response() types.CallerResponse {
	var details any
	if e.Details != "" {
		details = e.Details
	}
	return types.NewErrorResponse(e.StatusCode, e.Message, details)
}
