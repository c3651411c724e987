package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/api/validation"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tasks"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/pkg/crypto"
	"gorm.io/gorm"
)

// IntegrationHandler manages per-tenant forecasting-provider credentials.
// API keys are encrypted before they reach the database and are never
// returned by any endpoint.
type IntegrationHandler struct {
	db          *tenant.DB
	encryptor   *crypto.Encryptor
	asynqClient *asynq.Client
}

func NewIntegrationHandler(db *tenant.DB, encryptor *crypto.Encryptor, asynqClient *asynq.Client) *IntegrationHandler {
	return &IntegrationHandler{db: db, encryptor: encryptor, asynqClient: asynqClient}
}

type IntegrationRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

func (r IntegrationRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Provider == "" {
		errs["provider"] = "Provider is required"
	} else if !validation.IsSupportedProvider(r.Provider) {
		errs["provider"] = "Provider is not supported"
	}
	if r.APIKey == "" {
		errs["api_key"] = "API key is required"
	}
	return errs
}

// IntegrationResponse omits the credential itself.
type IntegrationResponse struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	IsEnabled    bool   `json:"is_enabled"`
	LastSyncedAt int64  `json:"last_synced_at,omitempty"`
}

func integrationToResponse(in *models.Integration) IntegrationResponse {
	resp := IntegrationResponse{
		ID:        in.ID.String(),
		Provider:  in.Provider,
		IsEnabled: in.IsEnabled,
	}
	if in.LastSyncedAt != nil {
		resp.LastSyncedAt = in.LastSyncedAt.Unix()
	}
	return resp
}

// List handles GET /api/v1/integrations
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	var integrations []models.Integration
	if err := h.db.Scoped(r.Context()).Find(&integrations).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list integrations"})
		return
	}

	out := make([]IntegrationResponse, len(integrations))
	for i := range integrations {
		out[i] = integrationToResponse(&integrations[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/v1/integrations
func (h *IntegrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req IntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	ciphertext, err := h.encryptor.Encrypt([]byte(req.APIKey))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to store credential"})
		return
	}

	integration := models.Integration{
		Provider:        req.Provider,
		EncryptedAPIKey: ciphertext,
		IsEnabled:       true,
	}

	if err := h.db.Scoped(r.Context()).Create(&integration).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create integration"})
		return
	}

	writeJSON(w, http.StatusCreated, integrationToResponse(&integration))
}

// Delete handles DELETE /api/v1/integrations/:id
func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	integrationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid integration ID"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Where("id = ?", integrationID).
		Delete(&models.Integration{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete integration"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Integration not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Integration deleted"})
}

// RefreshForecast handles POST /api/v1/integrations/:id/refresh. The heavy
// work runs in the worker; the job payload carries the tenant id so the
// worker can re-enter this tenant's scope.
func (h *IntegrationHandler) RefreshForecast(w http.ResponseWriter, r *http.Request) {
	integrationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid integration ID"})
		return
	}

	var integration models.Integration
	if err := h.db.Scoped(r.Context()).
		Where("id = ?", integrationID).
		First(&integration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Integration not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get integration"})
		return
	}

	if h.asynqClient == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Background queue unavailable"})
		return
	}

	task, err := tasks.NewForecastRefreshTask(tasks.ForecastRefreshPayload{
		TenantID:      integration.TenantID,
		IntegrationID: integration.ID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue refresh"})
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue refresh"})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Forecast refresh queued"})
}
