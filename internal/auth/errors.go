// Package auth provides the bearer-token admin gate for Overflow Admin.
package auth

import (
	"errors"
	"net/http"
)

// Authentication errors.
var (
	// ErrMissingToken indicates the Authorization header is absent.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAccessDenied indicates the caller is authenticated but not an admin.
	ErrAccessDenied = errors.New("admin access required")
)

// AuthError pairs an error with its HTTP status.
type AuthError struct {
	Message    string
	HTTPStatus int
}

// NewAuthError creates an AuthError from an error.
func NewAuthError(err error) *AuthError {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return &AuthError{Message: err.Error(), HTTPStatus: http.StatusForbidden}
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidAuthorizationHeader),
		errors.Is(err, ErrInvalidToken):
		return &AuthError{Message: err.Error(), HTTPStatus: http.StatusUnauthorized}
	default:
		return &AuthError{Message: "authentication failed", HTTPStatus: http.StatusUnauthorized}
	}
}
