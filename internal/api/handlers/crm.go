package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"gorm.io/gorm"
)

type CRMHandler struct {
	db *tenant.DB
}

func NewCRMHandler(db *tenant.DB) *CRMHandler {
	return &CRMHandler{db: db}
}

type AccountRequest struct {
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Website  string `json:"website"`
}

func (r AccountRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	return errs
}

// ListAccounts handles GET /api/v1/crm/accounts
func (h *CRMHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	pagination := dto.ParsePagination(r.URL.Query())

	query := h.db.Scoped(r.Context()).Model(&models.Account{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count accounts"})
		return
	}

	var accounts []models.Account
	if err := query.
		Order("name ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&accounts).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list accounts"})
		return
	}

	writeJSON(w, http.StatusOK, dto.Paginated(accounts, total, pagination))
}

// CreateAccount handles POST /api/v1/crm/accounts
func (h *CRMHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	account := models.Account{
		Name:     req.Name,
		Industry: req.Industry,
		Website:  req.Website,
	}

	if err := h.db.Scoped(r.Context()).Create(&account).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create account"})
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// GetAccount handles GET /api/v1/crm/accounts/:id
func (h *CRMHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid account ID"})
		return
	}

	var account models.Account
	if err := h.db.Scoped(r.Context()).
		Where("id = ?", accountID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get account"})
		return
	}

	writeJSON(w, http.StatusOK, account)
}

type OpportunityRequest struct {
	AccountID   uuid.UUID  `json:"account_id"`
	Name        string     `json:"name"`
	Stage       string     `json:"stage"`
	Amount      float64    `json:"amount"`
	Probability int        `json:"probability"`
	CloseDate   *time.Time `json:"close_date,omitempty"`
}

func (r OpportunityRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.AccountID == uuid.Nil {
		errs["account_id"] = "Account is required"
	}
	if r.Probability < 0 || r.Probability > 100 {
		errs["probability"] = "Probability must be between 0 and 100"
	}
	if r.Stage != "" {
		valid := map[string]bool{
			"prospecting": true, "qualified": true, "proposal": true,
			"negotiation": true, "closed_won": true, "closed_lost": true,
		}
		if !valid[r.Stage] {
			errs["stage"] = "Invalid stage"
		}
	}
	return errs
}

// CreateOpportunity handles POST /api/v1/crm/opportunities
func (h *CRMHandler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req OpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	var account models.Account
	if err := h.db.Scoped(r.Context()).
		Where("id = ?", req.AccountID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get account"})
		return
	}

	opp := models.Opportunity{
		AccountID:   req.AccountID,
		Name:        req.Name,
		Amount:      req.Amount,
		Probability: req.Probability,
		CloseDate:   req.CloseDate,
	}
	if req.Stage != "" {
		opp.Stage = models.OpportunityStage(req.Stage)
	}

	if err := h.db.Scoped(r.Context()).Create(&opp).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create opportunity"})
		return
	}

	writeJSON(w, http.StatusCreated, opp)
}

// UpdateOpportunityStage handles PUT /api/v1/crm/opportunities/:id/stage
func (h *CRMHandler) UpdateOpportunityStage(w http.ResponseWriter, r *http.Request) {
	oppID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid opportunity ID"})
		return
	}

	var req struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	valid := map[string]bool{
		"prospecting": true, "qualified": true, "proposal": true,
		"negotiation": true, "closed_won": true, "closed_lost": true,
	}
	if !valid[req.Stage] {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid stage"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Model(&models.Opportunity{}).
		Where("id = ?", oppID).
		Update("stage", models.OpportunityStage(req.Stage))
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update opportunity"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Opportunity not found"})
		return
	}

	var opp models.Opportunity
	h.db.Scoped(r.Context()).Where("id = ?", oppID).First(&opp)
	writeJSON(w, http.StatusOK, opp)
}

// StageSummary is one row of the pipeline aggregate.
type StageSummary struct {
	Stage string  `json:"stage"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// Pipeline handles GET /api/v1/crm/pipeline. The group-by runs through the
// scoped handle, so the sums only ever cover the resolved tenant's
// opportunities.
func (h *CRMHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	var summary []StageSummary
	if err := h.db.Scoped(r.Context()).
		Model(&models.Opportunity{}).
		Select("stage, COUNT(*) as count, SUM(amount) as total").
		Group("stage").
		Scan(&summary).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to build pipeline summary"})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
