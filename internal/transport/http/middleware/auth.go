package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"workzen/internal/domain/auth"
	"workzen/internal/transport/http/api"
)

// TokenResolver turns a bearer token into a principal, reloading the role
// from the account store.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (auth.Principal, error)
}

// Auth attaches the principal of a valid bearer token. Requests without one
// pass through unauthenticated; RequireAuth rejects them where needed.
func Auth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := resolver.ResolveToken(r.Context(), parts[1])
			if err != nil {
				if !errors.Is(err, auth.ErrSessionInvalid) && !errors.Is(err, auth.ErrAccountDisabled) {
					slog.Warn("token resolve failed", "requestId", GetRequestID(r.Context()), "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
