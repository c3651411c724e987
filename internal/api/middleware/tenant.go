package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"gorm.io/gorm"
)

// TenantHeader selects which of the user's tenants this request acts
// within. It carries the tenant id or slug; absence is legal and falls
// back to the user's sole membership.
const TenantHeader = "X-Tenant-ID"

// ResolveTenant runs after Auth. It picks the candidate tenant, verifies
// the user's membership and the tenant's status, then establishes the
// tenant context for the rest of the request.
//
// A user naming a tenant they were never invited to learns nothing from
// the response: the request either falls back to their own membership or
// fails with the same generic 403 a nonexistent tenant id produces.
//
// allowNoTenant is the dev/test relaxation: the request proceeds without a
// resolved context and any scoped data access downstream fails with
// tenant.ErrNoTenantContext. Config validation refuses the flag in
// production.
func ResolveTenant(db *gorm.DB, allowNoTenant bool, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			var memberships []models.TenantMembership
			if err := db.WithContext(r.Context()).
				Preload("Tenant").
				Where("user_id = ?", userID).
				Find(&memberships).Error; err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			selected := selectMembership(memberships, r.Header.Get(TenantHeader))
			if selected == nil {
				if allowNoTenant {
					// Narrow escape hatch: no context is established, so the
					// scoping layer rejects any data access this request makes.
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ten := selected.Tenant
			if ten == nil || !ten.IsActive() {
				log.Info("rejected request for inactive tenant",
					"tenant_id", selected.TenantID, "user_id", userID)
				http.Error(w, "Tenant inactive", http.StatusForbidden)
				return
			}

			ctx := tenant.WithContext(r.Context(), tenant.Context{
				ID:   ten.ID,
				Slug: ten.Slug,
				Plan: ten.Plan,
			})
			ctx = context.WithValue(ctx, MembershipRoleKey, selected.Role)
			ctx = context.WithValue(ctx, TenantModulesKey, ten.EnabledModules)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// selectMembership picks the membership for the request. An explicit header
// wins when the user actually belongs to that tenant; otherwise a sole
// membership is the default. Nil means no resolvable tenant.
func selectMembership(memberships []models.TenantMembership, header string) *models.TenantMembership {
	if header != "" {
		for i := range memberships {
			m := &memberships[i]
			if m.TenantID.String() == header || (m.Tenant != nil && m.Tenant.Slug == header) {
				return m
			}
		}
		// Fall through: the header named a tenant the user has no
		// membership in. Treat it exactly like an absent header.
	}
	if len(memberships) == 1 {
		return &memberships[0]
	}
	return nil
}
