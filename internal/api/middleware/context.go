package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/mhartman/cadence/internal/database/models"
)

type contextKey string

const (
	UserIDKey         contextKey = "user_id"
	UserEmailKey      contextKey = "user_email"
	PlatformAdminKey  contextKey = "platform_admin"
	MembershipRoleKey contextKey = "membership_role"
	TenantModulesKey  contextKey = "tenant_modules"
)

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func IsPlatformAdmin(ctx context.Context) bool {
	if v, ok := ctx.Value(PlatformAdminKey).(bool); ok {
		return v
	}
	return false
}

// GetMembershipRole returns the requesting user's role within the resolved
// tenant, empty when tenant resolution has not run.
func GetMembershipRole(ctx context.Context) string {
	if role, ok := ctx.Value(MembershipRoleKey).(string); ok {
		return role
	}
	return ""
}

// GetTenantModules returns the resolved tenant's enabled-module set. An
// empty set means the tenant has every module.
func GetTenantModules(ctx context.Context) models.StringSlice {
	if mods, ok := ctx.Value(TenantModulesKey).(models.StringSlice); ok {
		return mods
	}
	return nil
}
