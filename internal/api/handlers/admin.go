package handlers

import (
	"net/http"

	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/api/middleware"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
)

// AdminHandler serves platform-operator endpoints. This is the one request
// path allowed to use the unscoped database handle, and every call through
// it is logged by the scoping layer.
type AdminHandler struct {
	db *tenant.DB
}

func NewAdminHandler(db *tenant.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListUsers handles GET /api/v1/admin/users: a cross-tenant user listing
// for platform administration. Gated on the platform-admin flag, not on
// any tenant membership.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsPlatformAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	pagination := dto.ParsePagination(r.URL.Query())

	query := h.db.System(r.Context(), "platform admin user listing").
		Model(&models.User{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count users"})
		return
	}

	var users []models.User
	if err := query.
		Preload("Memberships").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&users).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list users"})
		return
	}

	writeJSON(w, http.StatusOK, dto.Paginated(users, total, pagination))
}
