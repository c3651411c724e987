package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant plans
const (
	PlanTrial        = "trial"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Tenant statuses
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Membership roles
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Optional feature modules, gated per tenant.
const (
	ModuleProjects    = "projects"
	ModuleClients     = "clients"
	ModuleCRM         = "crm"
	ModuleRisks       = "risks"
	ModuleForecasting = "forecasting"
)

// AllModules lists every module the process knows how to mount.
func AllModules() []string {
	return []string{ModuleProjects, ModuleClients, ModuleCRM, ModuleRisks, ModuleForecasting}
}

type Tenant struct {
	Base
	Name           string      `gorm:"not null" json:"name"`
	Slug           string      `gorm:"uniqueIndex;not null" json:"slug"`
	Plan           string      `gorm:"default:'trial'" json:"plan"` // trial, starter, professional, enterprise
	Status         string      `gorm:"default:'active'" json:"status"`
	EnabledModules StringSlice `gorm:"type:text" json:"enabled_modules"`

	// Relationships
	Memberships []TenantMembership `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// ModuleEnabled reports whether the named module is switched on for this
// tenant. A tenant with no explicit set gets every module.
func (t *Tenant) ModuleEnabled(name string) bool {
	if len(t.EnabledModules) == 0 {
		return true
	}
	return t.EnabledModules.Contains(name)
}

// TenantMembership is the sole source of truth for "user U may act as
// tenant T with role R". A user holds at most one role per tenant.
type TenantMembership struct {
	TenantID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role       string     `gorm:"not null;default:'member'" json:"role"` // owner, admin, member, viewer
	AcceptedAt *time.Time `json:"accepted_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"-"`
}

func (TenantMembership) TableName() string {
	return "tenant_memberships"
}
