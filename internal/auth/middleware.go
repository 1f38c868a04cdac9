package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/overflow-admin/internal/domain"
)

// Config contains configuration for the auth middleware.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte

	// Issuer, when set, must match the token's iss claim.
	Issuer string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// SkipPaths are paths that skip authentication.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig(secret string) Config {
	return Config{
		Secret:    []byte(secret),
		Leeway:    30 * time.Second,
		SkipPaths: []string{"/health", "/ready"},
	}
}

// Middleware creates an authentication middleware that only admits admins.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			authCtx, err := Authenticate(r, config)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("admin authentication failed")
				writeAuthError(w, err)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), AuthContextKey, authCtx))
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate validates the request's bearer token and requires the admin role.
func Authenticate(r *http.Request, config Config) (*AuthContext, error) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidAuthorizationHeader
	}

	claims, err := ParseToken(strings.TrimSpace(raw), config)
	if err != nil {
		return nil, err
	}
	if claims.Role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}

	return &AuthContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(raw string, config Config) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return config.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// writeAuthError writes an authentication error response.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr := NewAuthError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": authErr.Message,
		"code":  authErr.HTTPStatus,
	})
}

// GetAuthContext retrieves the AuthContext from a request context.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}
