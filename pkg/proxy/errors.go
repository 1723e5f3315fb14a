package proxy

import (
	"errors"
	"net/http"

	"mercator-hq/relay/pkg/proxy/types"
)

// Responder is implemented by errors that know their caller-facing form.
type Responder interface {
	Response() types.CallerResponse
}

// ErrorResponse converts err to a caller response. Errors that implement
// Responder anywhere in their chain describe themselves; everything else
// becomes a generic 500 so internal detail never reaches the caller.
func ErrorResponse(err error) types.CallerResponse {
	var responder Responder
	if errors.As(err, &responder) {
		return responder.Response()
	}
	return types.NewErrorResponse(http.StatusInternalServerError, types.MessageInternalError, nil)
}

// ValidationReason returns a short label for a validation failure, suitable
// for a metrics label.
func ValidationReason(err error) string {
	var missing *MissingFieldsError
	if errors.As(err, &missing) {
		return "missing_fields"
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode {
		case http.StatusRequestEntityTooLarge:
			return "body_too_large"
		case http.StatusBadRequest:
			if reqErr.Message == types.MessageInvalidJSON {
				return "invalid_json"
			}
			return "unreadable_body"
		}
	}

	return "other"
}
