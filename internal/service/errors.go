// Package service provides business logic services for Overflow Admin.
package service

import "errors"

// Common service errors.
// Moderation errors (not found, invalid state, forbidden) come from package
// domain and pass through services unchanged.
var (
	// User errors
	ErrInvalidPassword = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidName     = errors.New("invalid name: must be 1-255 characters")
	ErrInvalidEmail    = errors.New("invalid email format")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
