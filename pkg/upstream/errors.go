package upstream

import (
	"fmt"
	"time"
)

// TimeoutError reports an upstream call that exceeded its time budget.
type TimeoutError struct {
	// URL is the upstream endpoint.
	URL string

	// Timeout is the configured budget.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %q request timeout after %s", e.URL, e.Timeout)
}

// ConnectionError reports a transport-level failure: refused connection,
// DNS failure, reset, or any other error before a complete reply arrived.
type ConnectionError struct {
	// URL is the upstream endpoint.
	URL string

	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("upstream %q connection failed: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ApplicationError reports a non-2xx reply from the upstream.
type ApplicationError struct {
	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Message is the upstream's own description, or a default.
	Message string
}

// Error implements the error interface.
func (e *ApplicationError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// BadResponseError reports an upstream reply the relay cannot pass on.
type BadResponseError struct {
	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Reason describes what was wrong with the reply.
	Reason string
}

// Error implements the error interface.
func (e *BadResponseError) Error() string {
	return fmt.Sprintf("upstream bad response (status %d): %s", e.StatusCode, e.Reason)
}

// ConfigError represents a forwarder configuration error.
type ConfigError struct {
	// Field is the name of the invalid field.
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("upstream config error: %s: %s", e.Field, e.Message)
}
