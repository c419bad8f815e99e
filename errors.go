package tally

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/partition"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tally: not found")
	ErrAlreadyExists = errors.New("tally: already exists")

	// Entry errors
	ErrEntryNotFound = errors.New("tally: entry not found")
	ErrInvalidEntry  = partition.ErrInvalidEntry

	// Stream errors
	ErrUnknownStream   = partition.ErrUnknownStream
	ErrNoPartitionRule = errors.New("tally: no partition rule for kind")
	ErrFetchFailed     = errors.New("tally: stream fetch failed")
	ErrRowUpdateFailed = errors.New("tally: running balance update failed")

	// Store errors
	ErrStoreClosed = errors.New("tally: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError = partition.ValidationError

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tally: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tally: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrorOrNil returns e if it holds errors, nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrRowUpdateFailed)
}
