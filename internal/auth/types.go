package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/prn-tf/overflow-admin/internal/domain"
)

// Claims is the payload of an admin bearer token.
type Claims struct {
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// AuthContext contains authentication information for a request.
type AuthContext struct {
	// UserID is the token subject.
	UserID string

	// Email is the admin's email.
	Email string

	// Role is always admin once the middleware lets a request through.
	Role domain.UserRole
}

// contextKey is a type for context keys.
type contextKey string

const (
	// AuthContextKey is the context key for the authentication context.
	AuthContextKey contextKey = "auth"
)

// AuthorizationHeader is the header carrying the bearer token.
const AuthorizationHeader = "Authorization"
