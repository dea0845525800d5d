package middleware

import (
	"context"

	"workzen/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "principal"

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyUser, p)
}

// GetUser returns the principal resolved by Auth for this request.
func GetUser(ctx context.Context) (auth.Principal, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.Principal)
	return user, ok
}
