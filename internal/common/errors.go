// Package common provides shared utilities and types used across the categorizer.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrChunkTooLarge = errors.New("batch chunk exceeds store limit")

	// Sweep errors.
	ErrSweepInProgress = errors.New("sweep already in progress")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PersistenceError reports a failed flush of learned data to the durable
// store. It records how many chunks were committed before the failure so
// operators know the write was partial, not absent.
type PersistenceError struct {
	Err             error
	Op              string
	ChunksCommitted int
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed after %d committed chunk(s): %v", e.Op, e.ChunksCommitted, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err as a persistence failure for the given
// operation.
func NewPersistenceError(op string, committed int, err error) error {
	return &PersistenceError{Op: op, ChunksCommitted: committed, Err: err}
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry. Persistence
// failures are retryable because flushes are idempotent; everything else
// is treated as terminal unless explicitly marked.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return true
	}
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}
