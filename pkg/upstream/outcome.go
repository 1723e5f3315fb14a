package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mercator-hq/relay/pkg/proxy/types"
)

// Kind classifies the result of one forwarded request.
type Kind int

const (
	// KindSuccess is a 2xx reply with a JSON body.
	KindSuccess Kind = iota

	// KindApplicationError is a non-2xx reply.
	KindApplicationError

	// KindTimeout means the time budget elapsed before a complete reply.
	KindTimeout

	// KindConnectionFailure means the upstream could not be reached or the
	// connection broke.
	KindConnectionFailure

	// KindBadResponse is a reply that cannot be relayed: a 2xx without a JSON
	// body, an out-of-range status, or a body over the size limit.
	KindBadResponse

	// KindCanceled means the caller went away before the upstream answered.
	KindCanceled
)

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindApplicationError:
		return "application_error"
	case KindTimeout:
		return "timeout"
	case KindConnectionFailure:
		return "connection_failure"
	case KindBadResponse:
		return "bad_response"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the result of one forwarded request. Which fields are set
// depends on Kind.
type Outcome struct {
	Kind Kind

	// StatusCode is the upstream status, when a reply was received.
	StatusCode int

	// Body is the raw upstream body, when a reply was received.
	Body []byte

	// Message describes an application error or a bad response.
	Message string

	// Timeout is the budget that elapsed, for KindTimeout.
	Timeout time.Duration

	// Cause is the transport error, for KindConnectionFailure.
	Cause error

	// URL is the upstream endpoint the request was sent to.
	URL string

	// Latency is the wall time spent on the upstream call.
	Latency time.Duration
}

// Response converts the outcome to the response the caller receives.
func (o Outcome) Response() types.CallerResponse {
	switch o.Kind {
	case KindSuccess:
		return types.CallerResponse{StatusCode: o.StatusCode, Body: json.RawMessage(o.Body)}

	case KindApplicationError:
		return types.NewErrorResponse(o.StatusCode, o.Message, bodyDetails(o.Body))

	case KindTimeout:
		return types.NewErrorResponse(http.StatusGatewayTimeout, types.TimeoutMessage(o.Timeout), nil)

	case KindConnectionFailure:
		var details any
		if o.Cause != nil {
			details = o.Cause.Error()
		}
		return types.NewErrorResponse(http.StatusInternalServerError, types.MessageUpstreamFailed, details)

	case KindBadResponse:
		return types.NewErrorResponse(http.StatusBadGateway, types.MessageInvalidUpstream, o.Message)

	case KindCanceled:
		return types.NewErrorResponse(types.StatusClientClosedRequest, types.MessageCanceled, nil)

	default:
		return types.NewErrorResponse(http.StatusInternalServerError, types.MessageInternalError, nil)
	}
}

// Err returns the outcome as an error, or nil for KindSuccess.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindApplicationError:
		return &ApplicationError{StatusCode: o.StatusCode, Message: o.Message}
	case KindTimeout:
		return &TimeoutError{URL: o.URL, Timeout: o.Timeout}
	case KindConnectionFailure:
		return &ConnectionError{URL: o.URL, Cause: o.Cause}
	case KindBadResponse:
		return &BadResponseError{StatusCode: o.StatusCode, Reason: o.Message}
	case KindCanceled:
		return context.Canceled
	default:
		return nil
	}
}

// bodyDetails returns the upstream body as a JSON value when it parses, or
// as a string otherwise.
func bodyDetails(body []byte) any {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// applicationMessage picks the upstream's own description of an error reply:
// a "detail" string first, then "error", then "message". A "detail" list of
// validation errors yields the "msg" of its first entry. Anything else
// yields the default status message.
func applicationMessage(status int, body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if msg := validationMessage(obj["detail"]); msg != "" {
			return msg
		}
		for _, key := range []string{"detail", "error", "message"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return types.UpstreamStatusMessage(status)
}

// validationMessage reads [{"loc": [...], "msg": "..."}], the shape request
// validation errors take.
func validationMessage(detail any) string {
	list, ok := detail.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := entry["msg"].(string)
	return strings.TrimSpace(msg)
}
