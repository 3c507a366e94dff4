package httpx

import (
	"net/http"
	"slices"
)

// RequireAnyRole lets the request through when the caller's token carries at
// least one of roles in its groups claim. Must run after AuthnMiddleware.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			if slices.ContainsFunc(roles, claims.HasGroup) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role for this resource", nil)
		})
	}
}
