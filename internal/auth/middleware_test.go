package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/overflow-admin/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(role domain.UserRole, expires time.Time) Claims {
	return Claims{
		Email: "mod@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    "overflow",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestMiddleware(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "admin", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claimsFor(domain.RoleAdmin, future)), wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claimsFor(domain.RoleAdmin, future)), wantStatus: http.StatusOK},
		{name: "regular user", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claimsFor(domain.RoleUser, future)), wantStatus: http.StatusForbidden},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, claimsFor(domain.RoleAdmin, past)), wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, claimsFor(domain.RoleAdmin, future)), wantStatus: http.StatusUnauthorized},
		{name: "wrong algorithm", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, claimsFor(domain.RoleAdmin, future)), wantStatus: http.StatusUnauthorized},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "skipped path", path: "/health", wantStatus: http.StatusOK},
	}

	cfg := DefaultConfig(testSecret)
	cfg.Issuer = "overflow"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *AuthContext
			h := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetAuthContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			path := tt.path
			if path == "" {
				path = "/api/users/u1/ban"
			}
			req := httptest.NewRequest(http.MethodPost, path, nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"code":`)
				return
			}
			if tt.path == "" {
				require.NotNil(t, got)
				assert.Equal(t, "admin-1", got.UserID)
				assert.Equal(t, "mod@example.com", got.Email)
			}
		})
	}
}

func TestParseToken_Issuer(t *testing.T) {
	raw := signToken(t, testSecret, jwt.SigningMethodHS256, claimsFor(domain.RoleAdmin, time.Now().Add(time.Hour)))

	cfg := DefaultConfig(testSecret)
	cfg.Issuer = "someone-else"
	_, err := ParseToken(raw, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	cfg.Issuer = ""
	claims, err := ParseToken(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}
