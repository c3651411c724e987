package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeForecastRefresh = "forecast:refresh"
	TypeTenantDigest    = "digest:tenant"
	TypeSchedulerTick   = "scheduler:tick"
)

// ForecastRefreshPayload identifies which tenant's pipeline to recompute.
// The worker re-establishes that tenant's context before touching data.
type ForecastRefreshPayload struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
}

func NewForecastRefreshTask(payload ForecastRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeForecastRefresh, data), nil
}

// TenantDigestPayload drives one tenant's activity digest run.
type TenantDigestPayload struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
}

func NewTenantDigestTask(payload TenantDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTenantDigest, data), nil
}

// NewSchedulerTickTask has no payload; the handler scans for due digest
// schedules across tenants.
func NewSchedulerTickTask() *asynq.Task {
	return asynq.NewTask(TypeSchedulerTick, nil)
}
