package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhartman/cadence/internal/tenant"
)

// StringSlice is a custom type storing a string set as a JSON array column.
// Used for per-tenant enabled modules so the same column works on Postgres
// and the SQLite test database.
type StringSlice []string

// Scan implements the sql.Scanner interface for reading from database
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("StringSlice: expected string or []byte, got %T", value)
	}

	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}

// Value implements the driver.Valuer interface for writing to database
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Contains reports whether v is present in the slice.
func (s StringSlice) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// Base model with UUID primary key and timestamps
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// TenantBase is embedded by every tenant-scoped model. Its hooks are where
// creation pinning happens: the tenant id always comes from the operation's
// tenant context, so a caller-supplied tenant id in a payload can never
// place a record in another tenant.
type TenantBase struct {
	Base
	TenantID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
}

func (b *TenantBase) BeforeCreate(tx *gorm.DB) error {
	if err := b.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if tenant.Bypassed(tx) {
		// Maintenance path keeps the caller-supplied tenant id.
		return nil
	}
	id, err := tenant.ID(tx.Statement.Context)
	if err != nil {
		return err
	}
	b.TenantID = id
	return nil
}

// BeforeUpdate drops tenant_id from the update set. A record's tenant is
// assigned at creation and immutable thereafter.
func (b *TenantBase) BeforeUpdate(tx *gorm.DB) error {
	if tenant.Bypassed(tx) {
		return nil
	}
	tx.Statement.Omits = append(tx.Statement.Omits, "tenant_id")
	return nil
}
