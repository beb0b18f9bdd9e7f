package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// Stream errors
	ErrStreamClosed = errors.New("stream is closed")
	ErrNilTransport = errors.New("transport cannot be nil")
	ErrEmptyURL     = errors.New("url is required")
	ErrNotPartial   = errors.New("resumed response is not partial content")

	// Fetch errors
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// Download record errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// ResumeError is returned when a stream tried to resume after a transport
// error and the replacement request could not be established.
//
// Err is the failure of the resumption attempt itself. Cause is the
// mid-stream error that triggered the attempt; it is kept for logging only
// and is not reachable through Unwrap.
type ResumeError struct {
	Offset  int64
	Attempt int
	Cause   error
	Err     error
}

// Error returns the error message
func (e *ResumeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resume at byte %d failed", e.Offset)
	}
	return fmt.Sprintf("resume at byte %d failed: %v", e.Offset, e.Err)
}

// Unwrap returns the resumption failure
func (e *ResumeError) Unwrap() error {
	return e.Err
}

// NewResumeError creates a new ResumeError
func NewResumeError(offset int64, attempt int, cause, err error) *ResumeError {
	return &ResumeError{Offset: offset, Attempt: attempt, Cause: cause, Err: err}
}

// IsResumeError returns true if err is or wraps a ResumeError
func IsResumeError(err error) bool {
	var re *ResumeError
	return errors.As(err, &re)
}

// StatusError reports an initial response whose status code the caller
// rejected.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error returns the error message
func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status %s for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// Is makes 404 responses match ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
