package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusClientClosedRequest is the non-standard status logged and returned
// when the caller goes away before the upstream answers.
const StatusClientClosedRequest = 499

// Error messages shared across packages.
const (
	MessageInvalidJSON      = "invalid JSON body"
	MessageBodyTooLarge     = "request body too large"
	MessageUpstreamFailed   = "failed to reach upstream service"
	MessageInvalidUpstream  = "upstream returned an invalid response"
	MessageCanceled         = "request canceled by caller"
	MessageInternalError    = "internal server error"
	MessageNotFound         = "not found"
	MessageMethodNotAllowed = "method not allowed"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	// Error is a human-readable summary.
	Error string `json:"error"`

	// Details carries upstream payloads, parser messages or transport causes.
	Details any `json:"details,omitempty"`
}

// NewErrorResponse builds an error CallerResponse. A nil details omits the
// "details" field.
func NewErrorResponse(status int, message string, details any) CallerResponse {
	body, err := json.Marshal(ErrorBody{Error: message, Details: details})
	if err != nil {
		// details was not serializable; keep the message
		body, _ = json.Marshal(ErrorBody{Error: message})
	}
	return CallerResponse{StatusCode: status, Body: body}
}

// TimeoutMessage renders the caller-facing message for an upstream timeout.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("request timed out after %dms", timeout.Milliseconds())
}

// UpstreamStatusMessage is the default message for an upstream error reply
// that does not describe itself.
func UpstreamStatusMessage(status int) string {
	return fmt.Sprintf("upstream service returned status %d", status)
}
