package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/api/validation"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db *tenant.DB
}

func NewClientHandler(db *tenant.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

type ClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Notes   string `json:"notes"`
}

func (r ClientRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.Email != "" && !validation.IsValidEmail(r.Email) {
		errs["email"] = "Email is not a valid address"
	}
	return errs
}

// Notes are free-form text pasted from anywhere; strip control characters
// and cap the length before storing.
func (r *ClientRequest) normalize() {
	r.Notes = validation.TruncateString(validation.SanitizeString(r.Notes), 10000)
}

// List handles GET /api/v1/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := dto.ParsePagination(r.URL.Query())

	query := h.db.Scoped(r.Context()).Model(&models.Client{})

	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count clients"})
		return
	}

	var clients []models.Client
	if err := query.
		Order("name ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&clients).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list clients"})
		return
	}

	writeJSON(w, http.StatusOK, dto.Paginated(clients, total, pagination))
}

// Create handles POST /api/v1/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}
	req.normalize()

	client := models.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Notes:   req.Notes,
	}

	if err := h.db.Scoped(r.Context()).Create(&client).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create client"})
		return
	}

	writeJSON(w, http.StatusCreated, client)
}

// Get handles GET /api/v1/clients/:id
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
		return
	}

	var client models.Client
	if err := h.db.Scoped(r.Context()).
		Where("id = ?", clientID).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get client"})
		return
	}

	writeJSON(w, http.StatusOK, client)
}

// Update handles PUT /api/v1/clients/:id
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
		return
	}

	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}
	req.normalize()

	result := h.db.Scoped(r.Context()).
		Model(&models.Client{}).
		Where("id = ?", clientID).
		Updates(map[string]interface{}{
			"name":    req.Name,
			"email":   req.Email,
			"phone":   req.Phone,
			"company": req.Company,
			"notes":   req.Notes,
		})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update client"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
		return
	}

	var client models.Client
	h.db.Scoped(r.Context()).Where("id = ?", clientID).First(&client)
	writeJSON(w, http.StatusOK, client)
}

// Delete handles DELETE /api/v1/clients/:id
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Where("id = ?", clientID).
		Delete(&models.Client{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete client"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Client deleted"})
}
