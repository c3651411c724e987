package models

import "time"

// Integration holds a tenant's credential for an external forecasting
// provider. The API key is encrypted at rest; only the ciphertext is
// persisted.
type Integration struct {
	TenantBase
	Provider        string     `gorm:"not null" json:"provider"`
	EncryptedAPIKey []byte     `gorm:"type:bytea" json:"-"`
	IsEnabled       bool       `gorm:"default:true" json:"is_enabled"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
}

func (Integration) TableName() string {
	return "integrations"
}

// DigestSchedule drives the recurring per-tenant activity digest. CronExpr
// uses the standard five-field format.
type DigestSchedule struct {
	TenantBase
	Name      string `gorm:"not null" json:"name"`
	CronExpr  string `gorm:"not null" json:"cron_expr"`
	IsEnabled bool   `gorm:"default:true" json:"is_enabled"`
	NextRunAt int64  `gorm:"index" json:"next_run_at"`
	LastRunAt int64  `json:"last_run_at"`
}

func (DigestSchedule) TableName() string {
	return "digest_schedules"
}
