// Package proxy holds the caller-facing half of the relay: decoding and
// validating inbound requests and writing responses.
//
// # Validation
//
// ValidateCandidate checks an arbitrary decoded JSON value for the three
// required string fields (user_id, session_id, prompt). A field that is
// absent, not a string, or blank after trimming is missing. Missing fields
// are reported together, in that order:
//
//	Missing required fields: session_id, prompt
//
// ParseInboundRequest wraps ValidateCandidate with bounded body reading and
// JSON decoding. An empty body is treated like an empty object. Oversized
// bodies are rejected with 413 and malformed JSON with 400. Validation never
// contacts the upstream.
//
// # Responses
//
// WriteCallerResponse writes a types.CallerResponse as application/json.
// ErrorResponse maps the errors of this package onto caller responses.
//
// # Subpackages
//
//   - handlers: HTTP handlers for the relay routes
//   - middleware: request ID, logging and panic recovery
//   - types: request and response values
package proxy
