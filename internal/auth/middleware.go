package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/backoffice/internal/models"
	pkghttp "github.com/BradenHooton/backoffice/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
	// TokenContextKey is the key for the raw bearer token of the request
	TokenContextKey contextKey = "token"
)

// AuthMiddleware validates the bearer token and injects its claims and the raw
// token into the request context. Nothing is shared between requests.
func AuthMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Not authorized, no token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				pkghttp.WriteUnauthorized(w, "Invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Not authorized, token failed")
				return
			}

			ctx := WithUser(r.Context(), claims, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a context carrying the verified claims and raw token
func WithUser(ctx context.Context, claims *models.TokenClaims, token string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, claims)
	return context.WithValue(ctx, TokenContextKey, token)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetTokenFromContext returns the bearer token the request was authenticated with
func GetTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenContextKey).(string)
	return token
}
