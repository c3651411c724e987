package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mhartman/cadence/internal/auth"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/internal/testutil"
	"github.com/mhartman/cadence/pkg/config"
	"github.com/mhartman/cadence/pkg/crypto"
)

type routerFixture struct {
	db     *gorm.DB
	router http.Handler
	jwt    *auth.JWTService
}

func setupRouter(t *testing.T, modules []string) *routerFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := testutil.CreateTestJWTService()
	authService := auth.NewService(db, jwtService)

	encryptor, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	// Lazy client; nothing in these tests enqueues.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: "localhost:6379"})
	t.Cleanup(func() { asynqClient.Close() })

	router := NewRouter(RouterConfig{
		DB:          db,
		TenantDB:    tenant.NewDB(db, logger),
		Logger:      logger,
		JWTService:  jwtService,
		AuthService: authService,
		Encryptor:   encryptor,
		AsynqClient: asynqClient,
		Session:     config.SessionConfig{CookieName: "token", SameSite: "lax"},
		Modules:     modules,
	})

	return &routerFixture{db: db, router: router, jwt: jwtService}
}

// seedTenantUser creates a tenant with one member of the given role and
// returns the tenant and a valid token.
func (f *routerFixture) seedTenantUser(t *testing.T, role string) (*models.Tenant, string) {
	t.Helper()

	ten := testutil.CreateTestTenant(t, f.db)
	user := testutil.CreateTestUser(t, f.db)
	testutil.CreateTestMembership(t, f.db, ten, user, role)
	return ten, testutil.GenerateTestToken(t, f.jwt, user)
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	rr := f.do(testutil.UnauthenticatedRequest(t, "GET", "/health", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	rr := f.do(testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"email":       "pm@example.com",
		"password":    "longenoughpassword",
		"name":        "Project Manager",
		"tenant_name": "Example Studio",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = f.do(testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{
		"email":    "pm@example.com",
		"password": "longenoughpassword",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var login struct {
		Token string `json:"token"`
	}
	testutil.ParseJSONResponse(t, rr, &login)
	require.NotEmpty(t, login.Token)

	rr = f.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/me", nil, login.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var me struct {
		Email string `json:"email"`
	}
	testutil.ParseJSONResponse(t, rr, &me)
	assert.Equal(t, "pm@example.com", me.Email)
}

func TestRouter_LoginFailureIsGeneric(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	rr := f.do(testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"email": "lead@example.com", "password": "longenoughpassword", "name": "Lead",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	unknown := f.do(testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever123",
	}))
	testutil.AssertStatus(t, unknown, http.StatusUnauthorized)

	wrongPass := f.do(testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{
		"email": "lead@example.com", "password": "wrongpassword",
	}))
	testutil.AssertStatus(t, wrongPass, http.StatusUnauthorized)

	// Same body for both failure modes.
	assert.Equal(t, unknown.Body.String(), wrongPass.Body.String())
}

func TestRouter_ProjectIsolationEndToEnd(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	tenantA, tokenA := f.seedTenantUser(t, models.RoleOwner)
	tenantB, tokenB := f.seedTenantUser(t, models.RoleOwner)

	// Each tenant creates a project.
	rr := f.do(testutil.TenantRequest(t, "POST", "/api/v1/projects",
		map[string]interface{}{"name": "Website Relaunch"}, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var projA models.Project
	testutil.ParseJSONResponse(t, rr, &projA)
	assert.Equal(t, tenantA.ID, projA.TenantID)

	rr = f.do(testutil.TenantRequest(t, "POST", "/api/v1/projects",
		map[string]interface{}{"name": "ERP Migration"}, tokenB, tenantB.Slug))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var projB models.Project
	testutil.ParseJSONResponse(t, rr, &projB)

	// Listing shows only the caller's tenant.
	rr = f.do(testutil.TenantRequest(t, "GET", "/api/v1/projects", nil, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list struct {
		Data  []models.Project `json:"data"`
		Total int64            `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &list)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Website Relaunch", list.Data[0].Name)

	// Reading, updating and deleting the other tenant's project by exact
	// id all answer 404.
	rr = f.do(testutil.TenantRequest(t, "GET", "/api/v1/projects/"+projB.ID.String(), nil, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = f.do(testutil.TenantRequest(t, "PUT", "/api/v1/projects/"+projB.ID.String(),
		map[string]interface{}{"name": "Hijacked"}, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = f.do(testutil.TenantRequest(t, "DELETE", "/api/v1/projects/"+projB.ID.String(), nil, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	// Tenant B's project is untouched.
	var check models.Project
	require.NoError(t, f.db.Where("id = ?", projB.ID).First(&check).Error)
	assert.Equal(t, "ERP Migration", check.Name)
}

func TestRouter_CreateIgnoresForgedTenantID(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	tenantA, tokenA := f.seedTenantUser(t, models.RoleOwner)
	tenantB, _ := f.seedTenantUser(t, models.RoleOwner)

	rr := f.do(testutil.TenantRequest(t, "POST", "/api/v1/projects", map[string]interface{}{
		"name":      "Forged",
		"tenant_id": tenantB.ID.String(),
	}, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var created models.Project
	testutil.ParseJSONResponse(t, rr, &created)
	assert.Equal(t, tenantA.ID, created.TenantID)
}

func TestRouter_PipelineAggregateIsScoped(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	tenantA, tokenA := f.seedTenantUser(t, models.RoleOwner)
	tenantB, _ := f.seedTenantUser(t, models.RoleOwner)

	testutil.CreateTestOpportunity(t, f.db, tenantA.ID, models.StageProposal, 5000, 40)
	testutil.CreateTestOpportunity(t, f.db, tenantB.ID, models.StageProposal, 900000, 90)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/crm/pipeline", nil, tokenA, tenantA.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var summary []struct {
		Stage string  `json:"stage"`
		Count int64   `json:"count"`
		Total float64 `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &summary)
	require.Len(t, summary, 1)
	assert.Equal(t, "proposal", summary[0].Stage)
	assert.Equal(t, int64(1), summary[0].Count)
	assert.Equal(t, 5000.0, summary[0].Total)
}

func TestRouter_ModuleDisabledForTenantIs404(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleOwner)
	require.NoError(t, f.db.Model(ten).
		Update("enabled_modules", models.StringSlice{models.ModuleProjects}).Error)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/crm/accounts", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = f.do(testutil.TenantRequest(t, "GET", "/api/v1/projects", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRouter_ModuleAbsentFromProcessRegistryNeverMounts(t *testing.T) {
	f := setupRouter(t, []string{models.ModuleProjects})

	ten, token := f.seedTenantUser(t, models.RoleOwner)

	// crm is not in the process registry, so the route does not exist for
	// any tenant, however its own module set reads.
	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/crm/accounts", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestRouter_ModuleDiscovery(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleOwner)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/tenant/modules", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Modules []string `json:"modules"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	// No explicit set means every module.
	assert.ElementsMatch(t, models.AllModules(), resp.Modules)

	require.NoError(t, f.db.Model(ten).
		Update("enabled_modules", models.StringSlice{models.ModuleRisks}).Error)

	rr = f.do(testutil.TenantRequest(t, "GET", "/api/v1/tenant/modules", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, []string{models.ModuleRisks}, resp.Modules)
}

func TestRouter_ViewerCannotMutate(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleViewer)

	rr := f.do(testutil.TenantRequest(t, "POST", "/api/v1/clients",
		map[string]interface{}{"name": "New Client"}, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	rr = f.do(testutil.TenantRequest(t, "GET", "/api/v1/clients", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRouter_MemberCannotManageIntegrations(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleMember)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/integrations", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestRouter_CurrentTenant(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleAdmin)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/tenant", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var info struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
		Role string `json:"role"`
	}
	testutil.ParseJSONResponse(t, rr, &info)
	assert.Equal(t, ten.ID.String(), info.ID)
	assert.Equal(t, ten.Slug, info.Slug)
	assert.Equal(t, models.RoleAdmin, info.Role)
}

func TestRouter_SuspendedTenantLockedOut(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten, token := f.seedTenantUser(t, models.RoleOwner)
	require.NoError(t, f.db.Model(ten).
		Update("status", models.TenantStatusSuspended).Error)

	rr := f.do(testutil.TenantRequest(t, "GET", "/api/v1/projects", nil, token, ten.Slug))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	// Authentication itself still works; only tenant entry is refused.
	rr = f.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/me", nil, token))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRouter_AdminUsersRequiresPlatformAdmin(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	_, token := f.seedTenantUser(t, models.RoleOwner)

	rr := f.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/users", nil, token))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestRouter_AdminUsersListsAcrossTenants(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	_, _ = f.seedTenantUser(t, models.RoleOwner)
	_, _ = f.seedTenantUser(t, models.RoleOwner)

	operator := testutil.CreateTestUser(t, f.db)
	require.NoError(t, f.db.Model(operator).Update("is_platform_admin", true).Error)
	token := testutil.GenerateTestToken(t, f.jwt, operator)

	rr := f.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/users", nil, token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Total int64 `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	// Two tenant owners plus the operator.
	assert.Equal(t, int64(3), resp.Total)
}

func TestRouter_MembershipsListing(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	ten := testutil.CreateTestTenant(t, f.db)
	other := testutil.CreateTestTenant(t, f.db)
	user := testutil.CreateTestUser(t, f.db)
	testutil.CreateTestMembership(t, f.db, ten, user, models.RoleOwner)
	testutil.CreateTestMembership(t, f.db, other, user, models.RoleViewer)
	token := testutil.GenerateTestToken(t, f.jwt, user)

	rr := f.do(testutil.AuthenticatedRequest(t, "GET", "/api/v1/memberships", nil, token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var memberships []struct {
		TenantID string `json:"tenant_id"`
		Role     string `json:"role"`
	}
	testutil.ParseJSONResponse(t, rr, &memberships)
	assert.Len(t, memberships, 2)
}

func TestRouter_UnauthenticatedTenantRoutes(t *testing.T) {
	f := setupRouter(t, models.AllModules())

	rr := f.do(testutil.UnauthenticatedRequest(t, "GET", "/api/v1/projects", nil))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
