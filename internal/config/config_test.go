package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("STOCKLEDGER_DATA_DIR", dataDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "stockledger.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dataDir, "backups"), cfg.Backup.Dir)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "stockledger.yaml")
	yamlContent := `
port: 9100
log_level: debug
log_file: logs/ledger.log
backup:
  enabled: true
  schedule: "@daily"
  retention_days: 7
  s3:
    bucket: ledger-backups
    access_key_id: key
    secret_access_key: secret
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	t.Setenv("STOCKLEDGER_CONFIG", path)
	t.Setenv("STOCKLEDGER_DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, http://127.0.0.1:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port, "file value applies when env is unset")
	assert.Equal(t, "warn", cfg.LogLevel, "env wins over file")
	assert.Equal(t, filepath.Join(dataDir, "logs/ledger.log"), cfg.LogFile)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, "ledger-backups", cfg.Backup.S3.Bucket)
	assert.Equal(t, "backups/", cfg.Backup.S3.Prefix, "untouched nested defaults survive the overlay")
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("STOCKLEDGER_DATA_DIR", t.TempDir())
	t.Setenv("STOCKLEDGER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
		{"bad reconcile schedule", func(c *Config) { c.ReconcileSchedule = "every tuesday" }, true},
		{"reconcile disabled", func(c *Config) { c.ReconcileSchedule = "" }, false},
		{"bad backup schedule ignored when disabled", func(c *Config) { c.Backup.Schedule = "nope" }, false},
		{"bad backup schedule", func(c *Config) {
			c.Backup.Enabled = true
			c.Backup.Schedule = "nope"
		}, true},
		{"half S3 credentials", func(c *Config) {
			c.Backup.S3.Bucket = "b"
			c.Backup.S3.AccessKeyID = "k"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
