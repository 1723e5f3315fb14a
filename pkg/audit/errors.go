package audit

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by a storage backend after Close.
var ErrClosed = errors.New("audit storage closed")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "sqlite", "sqlite3" or "memory"
	Operation string // "open", "store", "query", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
