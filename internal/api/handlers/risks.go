package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"gorm.io/gorm"
)

type RiskHandler struct {
	db *tenant.DB
}

func NewRiskHandler(db *tenant.DB) *RiskHandler {
	return &RiskHandler{db: db}
}

type RiskRequest struct {
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Severity    string     `json:"severity"`
	Mitigation  string     `json:"mitigation"`
}

func (r RiskRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Title == "" {
		errs["title"] = "Title is required"
	}
	if r.Category != "" {
		valid := map[string]bool{"risk": true, "assumption": true, "issue": true, "dependency": true}
		if !valid[r.Category] {
			errs["category"] = "Invalid category"
		}
	}
	if r.Severity != "" {
		valid := map[string]bool{"low": true, "medium": true, "high": true, "critical": true}
		if !valid[r.Severity] {
			errs["severity"] = "Invalid severity"
		}
	}
	return errs
}

// List handles GET /api/v1/risks
func (h *RiskHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := dto.ParsePagination(r.URL.Query())

	query := h.db.Scoped(r.Context()).Model(&models.Risk{})

	if severity := r.URL.Query().Get("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count risks"})
		return
	}

	var risks []models.Risk
	if err := query.
		Order("severity DESC, created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&risks).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list risks"})
		return
	}

	writeJSON(w, http.StatusOK, dto.Paginated(risks, total, pagination))
}

// Create handles POST /api/v1/risks
func (h *RiskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	risk := models.Risk{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Mitigation:  req.Mitigation,
	}
	if req.Category != "" {
		risk.Category = models.RiskCategory(req.Category)
	}
	if req.Severity != "" {
		risk.Severity = models.RiskSeverity(req.Severity)
	}

	if err := h.db.Scoped(r.Context()).Create(&risk).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create risk"})
		return
	}

	writeJSON(w, http.StatusCreated, risk)
}

// Get handles GET /api/v1/risks/:id
func (h *RiskHandler) Get(w http.ResponseWriter, r *http.Request) {
	riskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid risk ID"})
		return
	}

	var risk models.Risk
	if err := h.db.Scoped(r.Context()).
		Where("id = ?", riskID).
		First(&risk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Risk not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get risk"})
		return
	}

	writeJSON(w, http.StatusOK, risk)
}

// UpdateStatus handles PUT /api/v1/risks/:id/status
func (h *RiskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	riskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid risk ID"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	valid := map[string]bool{"open": true, "mitigated": true, "closed": true}
	if !valid[req.Status] {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid status"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Model(&models.Risk{}).
		Where("id = ?", riskID).
		Update("status", models.RiskStatus(req.Status))
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update risk"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Risk not found"})
		return
	}

	var risk models.Risk
	h.db.Scoped(r.Context()).Where("id = ?", riskID).First(&risk)
	writeJSON(w, http.StatusOK, risk)
}

// Delete handles DELETE /api/v1/risks/:id
func (h *RiskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	riskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid risk ID"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Where("id = ?", riskID).
		Delete(&models.Risk{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete risk"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Risk not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Risk deleted"})
}
