package middleware

import (
	"net/http"

	"hallynk/internal/auth"
	"hallynk/internal/session"
)

// ResolveIdentity attaches the caller's identity to the request context
// without making any access decision. Resolver errors leave the request
// anonymous.
func ResolveIdentity(res session.Resolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.IdentityFromContext(r.Context()); ok || res == nil {
				next.ServeHTTP(w, r)
				return
			}
			if id, err := res.Resolve(r); err == nil && id != nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), *id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles answers 401 without an identity and 403 for other roles.
// It is meant for non-page endpoints such as /debug/vars; pages go through AccessGate.
func RequireRoles(roles ...auth.Role) Middleware {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
