package middleware

import (
	"net/http"

	"github.com/MrEthical07/adminauth"
)

// RequireRole rejects requests whose identity does not hold one of roles
// with 403. It must run after [Guard]; without claims it answers 401.
func RequireRole(roles ...adminauth.Role) func(http.Handler) http.Handler {
	allowed := make(map[adminauth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgMissing)
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				writeError(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(adminauth.RoleAdmin).
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(adminauth.RoleAdmin)
}
