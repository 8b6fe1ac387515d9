package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

func TestDefaultsMatchModel(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	d := models.DefaultConfig()
	assert.Equal(t, d.Compliance, cfg.Compliance)
	assert.Equal(t, d.Archive.Retention, cfg.Archive.Retention)
	assert.Equal(t, "ATU0", cfg.Notify.DefaultAppCode)
	assert.Equal(t, "N/A", cfg.Templates.Default)
	assert.Equal(t, 7, cfg.Input.WindowDays)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[compliance]
high = 4

[recipients]
environment = "prod"
default_to = "custodians@example.com"
default_cc = ["audit@example.com"]

[archive]
backend = "none"
retention = "48h"

[notify]
app_codes = ["ATU0", "ATU1"]
concurrency = 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Compliance.High)
	assert.Equal(t, 5, cfg.Compliance.Medium)
	assert.Equal(t, "prod", cfg.Recipients.Environment)
	assert.Equal(t, []string{"audit@example.com"}, cfg.Recipients.DefaultCC)
	assert.Equal(t, 48*time.Hour, cfg.Archive.Retention)
	assert.Equal(t, []string{"ATU0", "ATU1"}, cfg.Notify.AppCodes)
	assert.Equal(t, 3, cfg.Notify.Concurrency)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail:\n  transport: smtp\n  host: relay.local\n"), 0o600))
	t.Setenv("COMPLIANCE_MAIL_HOST", "relay.example.com")
	t.Setenv("VAULT_TOKEN", "s.abc")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp", cfg.Mail.Transport)
	assert.Equal(t, "relay.example.com", cfg.Mail.Host)
	assert.Equal(t, "s.abc", cfg.Recipients.Vault.Token)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Config)
	}{
		{"negative threshold", func(c *models.Config) { c.Compliance.High = -1 }},
		{"zero concurrency", func(c *models.Config) { c.Notify.Concurrency = 0 }},
		{"bad format", func(c *models.Config) { c.Output.Format = "xml" }},
		{"bad backend", func(c *models.Config) { c.Recipients.Backend = "ldap" }},
		{"bad transport", func(c *models.Config) { c.Mail.Transport = "fax" }},
		{"bad archive", func(c *models.Config) { c.Archive.Backend = "tape" }},
		{"file without path", func(c *models.Config) { c.Recipients.Backend = "file" }},
		{"vault without address", func(c *models.Config) { c.Recipients.Backend = "vault" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.DefaultConfig()
			tt.mutate(c)
			assert.Error(t, Validate(c))
		})
	}
	assert.NoError(t, Validate(models.DefaultConfig()))
}
