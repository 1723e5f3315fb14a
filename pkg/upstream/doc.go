// Package upstream forwards validated requests to the AI inference service
// and classifies what comes back.
//
// A Forwarder sends exactly one POST per request:
//
//	POST {base_url}{path}
//	Content-Type: application/json
//	Accept: application/json
//	X-Request-ID: <propagated>
//
//	{"user_id": "...", "session_id": "...", "prompt": "..."}
//
// There are no retries and no backoff. Each call is bounded by the
// configured timeout and by the caller's context.
//
// # Outcomes
//
// Forward returns an Outcome whose Kind is one of:
//
//	success             2xx with JSON body      relayed unchanged
//	application_error   3xx-5xx                 mirrored status, {error, details}
//	timeout             budget elapsed          504 {error}
//	connection_failure  transport error         500 {error, details}
//	bad_response        unusable reply          502 {error, details}
//	canceled            caller went away        499 {error}
//
// Outcome.Response builds the caller-facing response and Outcome.Err the
// typed error used for logging.
package upstream
