package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/audit"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/token"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// GetClaims returns the verified access-token claims, or nil outside an
// authenticated request.
func GetClaims(ctx context.Context) *token.AccessClaims {
	if claims, ok := ctx.Value(ClaimsContextKey).(*token.AccessClaims); ok {
		return claims
	}
	return nil
}

// AuthMiddleware verifies the bearer access token. Verification is
// purely cryptographic; a revoked or disabled account is only caught at
// the next refresh.
type AuthMiddleware struct {
	codec *token.Codec
}

func NewAuthMiddleware(codec *token.Codec) *AuthMiddleware {
	return &AuthMiddleware{codec: codec}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearer(r)
		if tokenStr == "" {
			deny(w, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken, "Missing authentication token")
			return
		}

		claims, err := m.codec.VerifyAccessToken(tokenStr)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			deny(w, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a route on the admin claim. Must run after Handler.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			deny(w, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken, "Missing authentication token")
			return
		}
		if !claims.IsAdmin {
			log.Warn().Str("email", claims.Subject).Msg("non-admin attempted admin route")
			deny(w, http.StatusForbidden, apperrors.ErrCodeForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
