// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// Chain wraps a handler in the relay's stack, outermost first:
//
//	RequestID → Logging → Recovery → handler
//
// # Request ID
//
// RequestIDMiddleware reuses a well-formed client X-Request-ID or generates
// a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The request ID is:
//   - Added to the context (GetRequestID)
//   - Attached as a log attribute to every context-aware log call
//   - Echoed in the response headers
//   - Propagated to the upstream request
//
// # Logging
//
// LoggingMiddleware writes one record per request:
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/api/gemini",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// # Recovery
//
// RecoveryMiddleware turns panics into a 500 with body
// {"error":"internal server error"}. The stack trace is logged only.
package middleware
