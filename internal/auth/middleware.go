package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "carrental/internal/errors"
)

type contextKey struct{}

// Middleware requires a valid bearer token and stores its claims in the
// request context.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, apperrors.ErrUnauthorizedHTTP("missing bearer token"))
				return
			}
			claims, err := tm.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeAuthError(w, apperrors.ErrUnauthorizedHTTP(err.Error()))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not listed. It
// must run after Middleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				writeAuthError(w, apperrors.ErrUnauthorizedHTTP("unauthorized"))
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, apperrors.NewHTTPError(http.StatusForbidden, "insufficient permissions"))
		})
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok && c != nil
}

func writeAuthError(w http.ResponseWriter, e *apperrors.HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": e.Message})
}
