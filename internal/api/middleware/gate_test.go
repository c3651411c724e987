package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mhartman/cadence/internal/database/models"
)

func withRole(req *http.Request, role string) *http.Request {
	ctx := context.WithValue(req.Context(), MembershipRoleKey, role)
	return req.WithContext(ctx)
}

func withModules(req *http.Request, mods models.StringSlice) *http.Request {
	ctx := context.WithValue(req.Context(), TenantModulesKey, mods)
	return req.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRole_Matrix(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		required []string
		want     int
	}{
		{"owner passes any check", models.RoleOwner, []string{models.RoleMember}, http.StatusOK},
		{"admin passes any check", models.RoleAdmin, []string{models.RoleMember}, http.StatusOK},
		{"member passes member check", models.RoleMember, []string{models.RoleMember}, http.StatusOK},
		{"viewer fails member check", models.RoleViewer, []string{models.RoleMember}, http.StatusForbidden},
		{"viewer passes viewer check", models.RoleViewer, []string{models.RoleViewer}, http.StatusOK},
		{"member fails admin-only check", models.RoleMember, []string{}, http.StatusForbidden},
		{"no role resolved", "", []string{models.RoleMember}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireRole(tc.required...)(okHandler())

			req := withRole(httptest.NewRequest("POST", "/probe", nil), tc.role)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestRequireModule_EnabledPasses(t *testing.T) {
	handler := RequireModule(models.ModuleCRM)(okHandler())

	req := withModules(httptest.NewRequest("GET", "/probe", nil),
		models.StringSlice{models.ModuleProjects, models.ModuleCRM})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireModule_DisabledIsNotFound(t *testing.T) {
	handler := RequireModule(models.ModuleCRM)(okHandler())

	// Disabled modules are indistinguishable from routes that do not
	// exist.
	req := withModules(httptest.NewRequest("GET", "/probe", nil),
		models.StringSlice{models.ModuleProjects})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequireModule_EmptySetMeansEverything(t *testing.T) {
	handler := RequireModule(models.ModuleForecasting)(okHandler())

	req := withModules(httptest.NewRequest("GET", "/probe", nil), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
