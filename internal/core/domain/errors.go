package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors resolved at the component boundary and mapped centrally to
// HTTP status codes. Nothing here is fatal to the process.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
	ErrRateLimited        = errors.New("too many requests, try again later")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already taken")
	ErrReportNotFound     = errors.New("report not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrEmptyMessage       = errors.New("message requires text or a file")
)

// LockedError is returned while an identity's lockout window is open. Every
// attempt is rejected regardless of password correctness.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, try again in %d minutes", e.RetryAfterMinutes())
}

// RetryAfterMinutes reports the remaining lockout, rounded up and never zero.
func (e *LockedError) RetryAfterMinutes() int {
	m := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

// ValidationError names the field (or party) that failed workflow validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field and reason.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UploadError wraps a blob-store failure during attachment upload. The
// metadata row must never be committed when the cause is non-nil.
type UploadError struct {
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("file upload failed: %v", e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }
