package handlers

import (
	"net/http"

	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/api/middleware"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
)

// TenantHandler serves read-only information about the resolved tenant.
type TenantHandler struct{}

func NewTenantHandler() *TenantHandler {
	return &TenantHandler{}
}

type TenantInfo struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
	Role string `json:"role"`
}

// Current handles GET /api/v1/tenant
func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	writeJSON(w, http.StatusOK, TenantInfo{
		ID:   tc.ID.String(),
		Slug: tc.Slug,
		Plan: tc.Plan,
		Role: middleware.GetMembershipRole(r.Context()),
	})
}

// Modules handles GET /api/v1/tenant/modules: the module-discovery
// endpoint. Returns the modules enabled for the resolved tenant.
func (h *TenantHandler) Modules(w http.ResponseWriter, r *http.Request) {
	if !tenant.Has(r.Context()) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	mods := middleware.GetTenantModules(r.Context())
	if len(mods) == 0 {
		mods = models.AllModules()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": mods})
}
