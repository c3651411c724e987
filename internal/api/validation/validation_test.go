package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"valid simple", "user@example.com", true},
		{"valid with plus", "user+tag@example.com", true},
		{"valid with dots", "first.last@sub.example.com", true},
		{"missing at", "userexample.com", false},
		{"missing domain", "user@", false},
		{"missing tld", "user@example", false},
		{"empty", "", false},
		{"spaces", "user name@example.com", false},
		{"too long", strings.Repeat("a", 250) + "@b.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEmail(tt.email))
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want bool
	}{
		{"simple", "acme", true},
		{"with hyphen", "acme-consulting", true},
		{"with digits", "team-42", true},
		{"single char", "a", true},
		{"uppercase", "Acme", false},
		{"leading hyphen", "-acme", false},
		{"trailing hyphen", "acme-", false},
		{"underscore", "acme_co", false},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidSlug(tt.slug))
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("c2b1a4e8-1f2d-4c3b-9a8e-7d6c5b4a3f2e"))
	assert.True(t, IsValidUUID("C2B1A4E8-1F2D-4C3B-9A8E-7D6C5B4A3F2E"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID("c2b1a4e81f2d4c3b9a8e7d6c5b4a3f2e"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"valid", "longenoughpassword", true},
		{"exactly eight", "12345678", true},
		{"too short", "short", false},
		{"empty", "", false},
		{"too long", strings.Repeat("x", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := IsValidPassword(tt.password)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestIsSupportedProvider(t *testing.T) {
	for _, p := range SupportedProviders {
		assert.True(t, IsSupportedProvider(p))
	}
	assert.False(t, IsSupportedProvider("zendesk"))
	assert.False(t, IsSupportedProvider("HubSpot"))
	assert.False(t, IsSupportedProvider(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hel\x00lo"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "tab\there", SanitizeString("tab\there"))
	assert.Equal(t, "clean", SanitizeString("cle\x1ban"))
	assert.Equal(t, "", SanitizeString(""))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel", TruncateString("hello", 3))
	assert.Equal(t, "", TruncateString("", 5))
	assert.Equal(t, "hello", TruncateString("hello", 5))
}
