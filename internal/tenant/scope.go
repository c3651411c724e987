package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// bypassKey marks a gorm session as exempt from tenant pinning. Only the
// System handle sets it.
const bypassKey = "tenant:bypass"

// DB wraps the raw gorm handle so that every operation issued through
// Scoped carries a tenant_id conjunction. The raw handle is reachable only
// through System, which is for migrations, fixtures and platform
// administration, never for request handlers.
type DB struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewDB(db *gorm.DB, log *slog.Logger) *DB {
	return &DB{db: db, log: log}
}

// forTenant conjoins the tenant filter into the statement's WHERE clause.
// It applies to find, update, delete, count and aggregate builds alike, so
// a record belonging to another tenant is indistinguishable from a record
// that does not exist.
func forTenant(id uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", id)
	}
}

// Scoped returns a gorm handle bound to the tenant active in ctx. When no
// tenant context is established the returned handle carries
// ErrNoTenantContext and every operation on it fails; it never runs
// unscoped.
func (t *DB) Scoped(ctx context.Context) *gorm.DB {
	id, err := ID(ctx)
	if err != nil {
		db := t.db.WithContext(ctx)
		_ = db.AddError(err)
		return db
	}
	return forTenant(id)(t.db.WithContext(ctx))
}

// Transaction runs fn inside a transaction with the tenant filter applied
// to the transaction handle. Fails before opening the transaction when no
// tenant context is active.
func (t *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	id, err := ID(ctx)
	if err != nil {
		return err
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(forTenant(id)(tx))
	})
}

// System returns the unscoped handle. Every use is logged with the caller's
// stated reason so cross-tenant access stays auditable.
func (t *DB) System(ctx context.Context, reason string) *gorm.DB {
	if t.log != nil {
		t.log.Warn("unscoped database access", "reason", reason)
	}
	return t.db.WithContext(ctx).Set(bypassKey, true)
}

// Bypass marks a raw gorm handle as exempt from tenant pinning, without
// going through a DB. Fixture seeding across tenants uses this.
func Bypass(db *gorm.DB) *gorm.DB {
	return db.Set(bypassKey, true)
}

// Bypassed reports whether tx was opened through System. Model hooks use it
// to skip tenant pinning on the maintenance path.
func Bypassed(tx *gorm.DB) bool {
	v, ok := tx.Get(bypassKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
