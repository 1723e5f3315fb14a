// Package types defines the request and response values that cross the
// relay's HTTP boundary.
//
// # Core Types
//
//   - InboundRequest: the validated caller payload forwarded upstream
//   - CallerResponse: a status code plus a JSON body, ready to be written
//   - ErrorBody: the {"error", "details"} shape of every error response
//   - Exchange: the summary of a forwarded request handed to sinks
//
// Every CallerResponse body is valid JSON. Error bodies always carry a
// string "error" field and, when there is more to say, a "details" field.
package types
