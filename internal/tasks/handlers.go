package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/pkg/queue"
	"github.com/mhartman/cadence/pkg/util"
)

// Handler processes background jobs. Every tenant-scoped job re-enters the
// tenant's context from its payload before touching data, so worker code
// obeys the same isolation boundary as request handlers.
type Handler struct {
	db     *tenant.DB
	client *asynq.Client
	logger *slog.Logger
}

func NewHandler(db *tenant.DB, client *asynq.Client, logger *slog.Logger) *Handler {
	return &Handler{db: db, client: client, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeForecastRefresh, h.HandleForecastRefresh)
	mux.HandleFunc(TypeTenantDigest, h.HandleTenantDigest)
	mux.HandleFunc(TypeSchedulerTick, h.HandleSchedulerTick)
}

// tenantContext loads the tenant row for a payload. Tenant rows themselves
// are not tenant-scoped records, so this goes through the maintenance
// handle.
func (h *Handler) tenantContext(ctx context.Context, id uuid.UUID) (tenant.Context, error) {
	var ten models.Tenant
	if err := h.db.System(ctx, "worker tenant lookup").
		Where("id = ?", id).
		First(&ten).Error; err != nil {
		return tenant.Context{}, fmt.Errorf("loading tenant %s: %w", id, err)
	}
	if !ten.IsActive() {
		return tenant.Context{}, fmt.Errorf("tenant %s is not active", ten.Slug)
	}
	return tenant.Context{ID: ten.ID, Slug: ten.Slug, Plan: ten.Plan}, nil
}

// HandleForecastRefresh recomputes the probability-weighted pipeline value
// for one tenant and stamps the integration's sync time.
func (h *Handler) HandleForecastRefresh(ctx context.Context, t *asynq.Task) error {
	var payload ForecastRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling forecast payload: %w", err)
	}

	tc, err := h.tenantContext(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	return tenant.RunWith(ctx, tc, func(ctx context.Context) error {
		var result struct {
			Weighted float64
			Count    int64
		}
		if err := h.db.Scoped(ctx).
			Model(&models.Opportunity{}).
			Select("COALESCE(SUM(amount * probability / 100.0), 0) as weighted, COUNT(*) as count").
			Where("stage NOT IN ?", []string{string(models.StageClosedWon), string(models.StageClosedLost)}).
			Scan(&result).Error; err != nil {
			return fmt.Errorf("computing forecast: %w", err)
		}

		now := time.Now()
		if err := h.db.Scoped(ctx).
			Model(&models.Integration{}).
			Where("id = ?", payload.IntegrationID).
			Update("last_synced_at", &now).Error; err != nil {
			return fmt.Errorf("stamping integration: %w", err)
		}

		h.logger.Info("forecast refreshed",
			"tenant", tc.Slug,
			"open_opportunities", result.Count,
			"weighted_pipeline", result.Weighted,
		)
		return nil
	})
}

// HandleTenantDigest summarizes one tenant's open work. Delivery is out of
// scope here; the digest is logged.
func (h *Handler) HandleTenantDigest(ctx context.Context, t *asynq.Task) error {
	var payload TenantDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling digest payload: %w", err)
	}

	tc, err := h.tenantContext(ctx, payload.TenantID)
	if err != nil {
		return err
	}

	return tenant.RunWith(ctx, tc, func(ctx context.Context) error {
		var openTasks, openRisks int64
		if err := h.db.Scoped(ctx).
			Model(&models.Task{}).
			Where("status <> ?", models.TaskStatusDone).
			Count(&openTasks).Error; err != nil {
			return fmt.Errorf("counting tasks: %w", err)
		}
		if err := h.db.Scoped(ctx).
			Model(&models.Risk{}).
			Where("status = ?", models.RiskStatusOpen).
			Count(&openRisks).Error; err != nil {
			return fmt.Errorf("counting risks: %w", err)
		}

		now := time.Now()
		updates := map[string]interface{}{"last_run_at": now.Unix()}
		var schedule models.DigestSchedule
		if err := h.db.Scoped(ctx).
			Where("id = ?", payload.ScheduleID).
			First(&schedule).Error; err == nil {
			if next, err := util.NextCronTime(schedule.CronExpr, now); err == nil {
				updates["next_run_at"] = next.Unix()
			}
			if err := h.db.Scoped(ctx).
				Model(&models.DigestSchedule{}).
				Where("id = ?", payload.ScheduleID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("updating schedule: %w", err)
			}
		}

		h.logger.Info("tenant digest",
			"tenant", tc.Slug,
			"open_tasks", openTasks,
			"open_risks", openRisks,
		)
		return nil
	})
}

// HandleSchedulerTick scans for due digest schedules across all tenants
// and fans out per-tenant digest jobs. The scan itself is maintenance
// code; per-tenant work happens inside the digest handler under that
// tenant's context.
func (h *Handler) HandleSchedulerTick(ctx context.Context, t *asynq.Task) error {
	now := time.Now().Unix()

	var due []models.DigestSchedule
	if err := h.db.System(ctx, "digest scheduler scan").
		Where("is_enabled = ? AND next_run_at <= ?", true, now).
		Find(&due).Error; err != nil {
		return fmt.Errorf("scanning schedules: %w", err)
	}

	for _, schedule := range due {
		task, err := NewTenantDigestTask(TenantDigestPayload{
			TenantID:   schedule.TenantID,
			ScheduleID: schedule.ID,
		})
		if err != nil {
			return err
		}
		if _, err := h.client.Enqueue(task, asynq.Queue(queue.QueueLow)); err != nil {
			h.logger.Error("failed to enqueue digest",
				"schedule_id", schedule.ID, "error", err)
			continue
		}
	}

	if len(due) > 0 {
		h.logger.Info("scheduler tick", "due_schedules", len(due))
	}
	return nil
}
