package middleware

import (
	"net/http"

	"workzen/internal/domain/auth"
	"workzen/internal/transport/http/api"
)

// RequirePermission is a coarse route gate: the role must hold the action on
// the resource at some scope. Services still check the subject.
func RequirePermission(action auth.Action, resource auth.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !auth.Authorize(user.Role, action, resource) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
