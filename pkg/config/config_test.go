package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllowNoTenantRefusedInProduction(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Env: "production"},
		Tenancy: TenancyConfig{AllowNoTenant: true},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_AllowNoTenantPermittedInDevelopment(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Env: "development"},
		Tenancy: TenancyConfig{AllowNoTenant: true},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionWithoutEscapeHatch(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Env: "production"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"projects", "crm"}, splitCSV("projects, crm"))
	assert.Equal(t, []string{"risks"}, splitCSV("risks,"))
	assert.Empty(t, splitCSV(""))
	assert.Empty(t, splitCSV(" , "))
}

func TestAddrHelpers(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", s.Addr())

	r := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", r.Addr())

	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "cadence", SSLMode: "disable"}
	assert.Contains(t, d.DSN(), "dbname=cadence")
}
