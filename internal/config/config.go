// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DataDir           string       `yaml:"data_dir"` // Base directory for the ledger database, backups and logs (always absolute)
	DatabasePath      string       `yaml:"database_path"`
	Port              int          `yaml:"port"`
	LogLevel          string       `yaml:"log_level"`
	LogFile           string       `yaml:"log_file"`
	LogPretty         bool         `yaml:"log_pretty"`
	DevMode           bool         `yaml:"dev_mode"`
	CORSOrigins       []string     `yaml:"cors_origins"`
	MetricsEnabled    bool         `yaml:"metrics_enabled"`
	ReconcileSchedule string       `yaml:"reconcile_schedule"` // Empty disables the drift check
	Backup            BackupConfig `yaml:"backup"`
}

// BackupConfig holds the snapshot backup settings
type BackupConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Schedule      string   `yaml:"schedule"`
	Dir           string   `yaml:"dir"`
	RetentionDays int      `yaml:"retention_days"`
	S3            S3Config `yaml:"s3"`
}

// S3Config points backups at an S3-compatible bucket (AWS, R2, MinIO).
// Upload is skipped when Bucket is empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

// Default returns the built-in configuration before any file or environment overrides.
func Default() *Config {
	return &Config{
		DataDir:           "./data",
		Port:              8000,
		LogLevel:          "info",
		LogPretty:         true,
		CORSOrigins:       []string{"*"},
		MetricsEnabled:    true,
		ReconcileSchedule: "0 30 3 * * *",
		Backup: BackupConfig{
			Enabled:       false,
			Schedule:      "0 0 2 * * *",
			RetentionDays: 30,
			S3: S3Config{
				Region: "auto",
				Prefix: "backups/",
			},
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and environment variables.
// Precedence, lowest first: defaults, STOCKLEDGER_CONFIG file, environment (.env included).
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("STOCKLEDGER_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("STOCKLEDGER_DATA_DIR", c.DataDir)
	c.DatabasePath = getEnv("STOCKLEDGER_DB_PATH", c.DatabasePath)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogPretty = getEnvAsBool("LOG_PRETTY", c.LogPretty)
	c.DevMode = getEnvAsBool("DEV_MODE", c.DevMode)
	c.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.CORSOrigins)
	c.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", c.MetricsEnabled)
	c.ReconcileSchedule = getEnv("RECONCILE_SCHEDULE", c.ReconcileSchedule)

	c.Backup.Enabled = getEnvAsBool("BACKUP_ENABLED", c.Backup.Enabled)
	c.Backup.Schedule = getEnv("BACKUP_SCHEDULE", c.Backup.Schedule)
	c.Backup.Dir = getEnv("BACKUP_DIR", c.Backup.Dir)
	c.Backup.RetentionDays = getEnvAsInt("BACKUP_RETENTION_DAYS", c.Backup.RetentionDays)
	c.Backup.S3.Bucket = getEnv("BACKUP_S3_BUCKET", c.Backup.S3.Bucket)
	c.Backup.S3.Endpoint = getEnv("BACKUP_S3_ENDPOINT", c.Backup.S3.Endpoint)
	c.Backup.S3.Region = getEnv("BACKUP_S3_REGION", c.Backup.S3.Region)
	c.Backup.S3.AccessKeyID = getEnv("BACKUP_S3_ACCESS_KEY_ID", c.Backup.S3.AccessKeyID)
	c.Backup.S3.SecretAccessKey = getEnv("BACKUP_S3_SECRET_ACCESS_KEY", c.Backup.S3.SecretAccessKey)
	c.Backup.S3.Prefix = getEnv("BACKUP_S3_PREFIX", c.Backup.S3.Prefix)
}

// resolvePaths makes DataDir absolute, creates it, and derives the
// database, backup and log locations that were left empty.
func (c *Config) resolvePaths() error {
	absDataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	c.DataDir = absDataDir

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "stockledger.db")
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.DataDir, "backups")
	}
	if c.LogFile != "" && !filepath.IsAbs(c.LogFile) {
		c.LogFile = filepath.Join(c.DataDir, c.LogFile)
	}
	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if c.ReconcileSchedule != "" {
		if _, err := parser.Parse(c.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", c.ReconcileSchedule, err)
		}
	}
	if c.Backup.Enabled {
		if _, err := parser.Parse(c.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", c.Backup.Schedule, err)
		}
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("backup retention days must be >= 0")
		}
	}

	s3 := c.Backup.S3
	if s3.Bucket != "" && (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
		return fmt.Errorf("backup S3 credentials require both access key id and secret")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
