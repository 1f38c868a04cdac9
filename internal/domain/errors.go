// Package domain contains the core business entities for Overflow Admin.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Lookup Errors
	// ===========================================

	// ErrNotFound is the parent of every "does not exist" error.
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = &DomainError{Err: ErrNotFound, Message: "user not found"}

	// ErrContentNotFound indicates the requested question/answer/reply does not exist.
	ErrContentNotFound = &DomainError{Err: ErrNotFound, Message: "content not found"}

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ===========================================
	// Moderation Errors
	// ===========================================

	// ErrInvalidState indicates a transition precondition did not hold.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyBanned indicates a ban was requested for a banned user.
	ErrAlreadyBanned = &DomainError{Err: ErrInvalidState, Message: "user is already banned"}

	// ErrNotBanned indicates an unban was requested for a user who is not banned.
	ErrNotBanned = &DomainError{Err: ErrInvalidState, Message: "user is not currently banned"}

	// ErrForbidden indicates the action is never allowed on the target.
	ErrForbidden = errors.New("forbidden")

	// ErrCannotBanAdmin indicates a ban was requested for an admin.
	ErrCannotBanAdmin = &DomainError{Err: ErrForbidden, Message: "cannot ban admin"}

	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrInvalidReason indicates the ban/hide reason is empty or too long.
	ErrInvalidReason = errors.New("reason is required")

	// ErrInvalidDuration indicates a ban duration outside 0..MaxBanDurationDays.
	ErrInvalidDuration = fmt.Errorf("ban duration must be between 0 and %d days", MaxBanDurationDays)

	// ErrInvalidContentKind indicates an unknown content kind.
	ErrInvalidContentKind = errors.New("content kind must be question, answer or reply")

	// ErrInvalidStatus indicates an unknown user status.
	ErrInvalidStatus = errors.New("status must be active, inactive, pending or banned")

	// ErrInvalidRole indicates an unknown user role.
	ErrInvalidRole = errors.New("role must be admin or user")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., user ID, content ID).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" && e.Message != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Resource)
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two DomainErrors with the same parent and message,
// so a resource-annotated copy still matches its sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Err == e.Err && t.Message == e.Message
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// WithResource returns a copy of a sentinel DomainError annotated with a resource.
func WithResource(sentinel *DomainError, resource string) *DomainError {
	return &DomainError{Err: sentinel.Err, Message: sentinel.Message, Resource: resource}
}
