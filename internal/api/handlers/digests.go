package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/api/dto"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/pkg/util"
)

// DigestHandler manages the recurring activity-digest schedules for the
// resolved tenant. The worker's scheduler tick picks up due schedules.
type DigestHandler struct {
	db *tenant.DB
}

func NewDigestHandler(db *tenant.DB) *DigestHandler {
	return &DigestHandler{db: db}
}

type DigestScheduleRequest struct {
	Name     string `json:"name"`
	CronExpr string `json:"cron_expr"`
}

func (r DigestScheduleRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.CronExpr == "" {
		errs["cron_expr"] = "Cron expression is required"
	} else if err := util.ValidateCronExpr(r.CronExpr); err != nil {
		errs["cron_expr"] = "Invalid cron expression"
	}
	return errs
}

// List handles GET /api/v1/digests
func (h *DigestHandler) List(w http.ResponseWriter, r *http.Request) {
	var schedules []models.DigestSchedule
	if err := h.db.Scoped(r.Context()).Order("created_at DESC").Find(&schedules).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list schedules"})
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

// Create handles POST /api/v1/digests
func (h *DigestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req DigestScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	nextRun, err := util.NextCronTime(req.CronExpr, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cron expression"})
		return
	}

	schedule := models.DigestSchedule{
		Name:      req.Name,
		CronExpr:  req.CronExpr,
		IsEnabled: true,
		NextRunAt: nextRun.Unix(),
	}

	if err := h.db.Scoped(r.Context()).Create(&schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create schedule"})
		return
	}

	writeJSON(w, http.StatusCreated, schedule)
}

// Delete handles DELETE /api/v1/digests/:id
func (h *DigestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid schedule ID"})
		return
	}

	result := h.db.Scoped(r.Context()).
		Where("id = ?", scheduleID).
		Delete(&models.DigestSchedule{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete schedule"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Schedule not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Schedule deleted"})
}
