// Package handlers provides the relay's HTTP endpoints.
//
//   - GenerateHandler: POST /api/gemini
//   - RootHandler: GET / and the JSON 404 for unknown paths
//
// # Request Flow
//
// GenerateHandler follows a fixed sequence:
//
//  1. Reject anything but POST with 405 and "Allow: POST"
//  2. Parse and validate the body; failures answer 400 or 413 and the
//     upstream is never contacted
//  3. Forward the request upstream exactly once
//  4. Write the outcome's response
//  5. Log the outcome, record metrics and notify exchange sinks
//
// Every error response is JSON of the form {"error": "...", "details": ...}.
//
// # Exchange Sinks
//
// Sinks such as the audit recorder and the event publisher receive an
// Exchange after the response is written. They must not block; buffered
// sinks drop rather than delay the caller.
package handlers
