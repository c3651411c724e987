package middleware

import (
	"net/http"

	"github.com/mhartman/cadence/internal/database/models"
)

// RequireRole allows the request when the resolved membership's role is in
// roles. Owners and admins pass every finer-grained check.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetMembershipRole(r.Context())

			if role == models.RoleOwner || role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// RequireModule allows the request only when the named module is enabled
// for the resolved tenant. A disabled module answers 404, so toggling a
// module off makes its routes invisible rather than degraded. The router
// additionally refuses to mount modules absent from the process registry;
// this guard is the request-time half of that defense.
func RequireModule(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mods := GetTenantModules(r.Context())
			if len(mods) > 0 && !mods.Contains(name) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
