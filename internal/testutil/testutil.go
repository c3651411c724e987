package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mhartman/cadence/internal/auth"
	"github.com/mhartman/cadence/internal/database/models"
	"github.com/mhartman/cadence/internal/tenant"
)

// SetupTestDB creates an in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.TenantMembership{},
		&models.Client{},
		&models.Project{},
		&models.Task{},
		&models.Account{},
		&models.Opportunity{},
		&models.Risk{},
		&models.Integration{},
		&models.DigestSchedule{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestTenant creates an active trial tenant with a unique slug.
func CreateTestTenant(t *testing.T, db *gorm.DB) *models.Tenant {
	t.Helper()

	ten := &models.Tenant{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:   "Test Tenant",
		Slug:   "test-tenant-" + uuid.New().String()[:8],
		Plan:   models.PlanTrial,
		Status: models.TenantStatusActive,
	}

	if err := db.Create(ten).Error; err != nil {
		t.Fatalf("failed to create test tenant: %v", err)
	}

	return ten
}

// CreateTestUser creates an active user. Tenant access comes from
// memberships, so pair this with CreateTestMembership.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestMembership attaches a user to a tenant with the given role.
func CreateTestMembership(t *testing.T, db *gorm.DB, ten *models.Tenant, user *models.User, role string) *models.TenantMembership {
	t.Helper()

	now := time.Now()
	membership := &models.TenantMembership{
		TenantID:   ten.ID,
		UserID:     user.ID,
		Role:       role,
		AcceptedAt: &now,
	}

	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	return membership
}

// TenantContext returns a context carrying the given tenant, the way the
// resolution middleware would establish it.
func TenantContext(ten *models.Tenant) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		ID:   ten.ID,
		Slug: ten.Slug,
		Plan: ten.Plan,
	})
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with a bearer token.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// TenantRequest is AuthenticatedRequest plus the tenant selection header.
func TenantRequest(t *testing.T, method, path string, body interface{}, token, tenantRef string) *http.Request {
	t.Helper()
	req := AuthenticatedRequest(t, method, path, body, token)
	if tenantRef != "" {
		req.Header.Set("X-Tenant-ID", tenantRef)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// CreateTestProject creates a project directly in the given tenant. Fixture
// creation goes through the maintenance bypass so tests can seed multiple
// tenants without juggling contexts.
func CreateTestProject(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) *models.Project {
	t.Helper()

	project := &models.Project{
		TenantBase: models.TenantBase{
			Base:     models.Base{ID: uuid.New()},
			TenantID: tenantID,
		},
		Name:   name,
		Status: models.ProjectStatusActive,
	}

	if err := tenant.Bypass(db).Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	return project
}

// CreateTestClient creates a client record in the given tenant.
func CreateTestClient(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) *models.Client {
	t.Helper()

	client := &models.Client{
		TenantBase: models.TenantBase{
			Base:     models.Base{ID: uuid.New()},
			TenantID: tenantID,
		},
		Name: name,
	}

	if err := tenant.Bypass(db).Create(client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}

	return client
}

// CreateTestOpportunity creates an account and an opportunity on it.
func CreateTestOpportunity(t *testing.T, db *gorm.DB, tenantID uuid.UUID, stage models.OpportunityStage, amount float64, probability int) *models.Opportunity {
	t.Helper()

	account := &models.Account{
		TenantBase: models.TenantBase{
			Base:     models.Base{ID: uuid.New()},
			TenantID: tenantID,
		},
		Name: "Test Account",
	}
	if err := tenant.Bypass(db).Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	opp := &models.Opportunity{
		TenantBase: models.TenantBase{
			Base:     models.Base{ID: uuid.New()},
			TenantID: tenantID,
		},
		AccountID:   account.ID,
		Name:        "Test Opportunity",
		Stage:       stage,
		Amount:      amount,
		Probability: probability,
	}
	if err := tenant.Bypass(db).Create(opp).Error; err != nil {
		t.Fatalf("failed to create test opportunity: %v", err)
	}

	return opp
}

// CreateTestRisk creates an open risk in the given tenant.
func CreateTestRisk(t *testing.T, db *gorm.DB, tenantID uuid.UUID, title string) *models.Risk {
	t.Helper()

	risk := &models.Risk{
		TenantBase: models.TenantBase{
			Base:     models.Base{ID: uuid.New()},
			TenantID: tenantID,
		},
		Title:    title,
		Category: models.RiskCategoryRisk,
		Severity: models.RiskSeverityMedium,
		Status:   models.RiskStatusOpen,
	}

	if err := tenant.Bypass(db).Create(risk).Error; err != nil {
		t.Fatalf("failed to create test risk: %v", err)
	}

	return risk
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Tenant     *models.Tenant
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup: database, one tenant, one
// owner user with a valid token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	ten := CreateTestTenant(t, db)
	user := CreateTestUser(t, db)
	CreateTestMembership(t, db, ten, user, models.RoleOwner)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Tenant:     ten,
		User:       user,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
