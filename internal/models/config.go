package models

import "time"

// Config holds configuration for a report and notification run
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Input      InputConfig      `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Templates  TemplateConfig   `mapstructure:"templates"`
	Recipients RecipientConfig  `mapstructure:"recipients"`
	Mail       MailConfig       `mapstructure:"mail"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// LoggerConfig controls the zap logger
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// InputConfig describes where raw search results come from
type InputConfig struct {
	Path       string `mapstructure:"path"`
	StartDate  string `mapstructure:"start_date"`
	EndDate    string `mapstructure:"end_date"`
	WindowDays int    `mapstructure:"window_days"`
}

// OutputConfig controls the written report
type OutputConfig struct {
	ReportPath string `mapstructure:"report_path"`
	Format     string `mapstructure:"format"` // "json", "terminal", "sarif"
}

// ComplianceConfig holds the per-app thresholds; an app is non-compliant
// when a count is strictly greater than its threshold.
type ComplianceConfig struct {
	Critical int `mapstructure:"critical"`
	High     int `mapstructure:"high"`
	Medium   int `mapstructure:"medium"`
}

// TemplateConfig points at template files; empty paths use the built-ins
type TemplateConfig struct {
	AppReport     string `mapstructure:"app_report"`
	AppSubject    string `mapstructure:"app_subject"`
	Digest        string `mapstructure:"digest"`
	DigestSubject string `mapstructure:"digest_subject"`
	Default       string `mapstructure:"default"`
}

// RecipientConfig controls recipient resolution
type RecipientConfig struct {
	Environment string      `mapstructure:"environment"`
	Backend     string      `mapstructure:"backend"` // "vault", "file" or "none"
	SubKey      string      `mapstructure:"sub_key"`
	DefaultTo   string      `mapstructure:"default_to"`
	DefaultCC   []string    `mapstructure:"default_cc"`
	DigestTo    string      `mapstructure:"digest_to"`
	File        string      `mapstructure:"file"`
	Vault       VaultConfig `mapstructure:"vault"`
}

// VaultConfig addresses a Vault KV v2 mount
type VaultConfig struct {
	Address string        `mapstructure:"address"`
	Token   string        `mapstructure:"token"`
	Mount   string        `mapstructure:"mount"`
	Prefix  string        `mapstructure:"prefix"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MailConfig controls how rendered notifications leave the process
type MailConfig struct {
	Transport string   `mapstructure:"transport"` // "smtp" or "spool"
	From      string   `mapstructure:"from"`
	Host      string   `mapstructure:"host"`
	Port      int      `mapstructure:"port"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	SpoolDir  string   `mapstructure:"spool_dir"`
	ExtraCC   []string `mapstructure:"extra_cc"`
}

// ArchiveConfig selects the durable store for report documents
type ArchiveConfig struct {
	Backend   string        `mapstructure:"backend"` // "local", "s3", "postgres" or "none"
	Dir       string        `mapstructure:"dir"`
	Retention time.Duration `mapstructure:"retention"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	Prefix    string        `mapstructure:"prefix"`
	DSN       string        `mapstructure:"dsn"`
}

// NotifyConfig controls the per-app fan-out
type NotifyConfig struct {
	DefaultAppCode string   `mapstructure:"default_app_code"`
	AppCodes       []string `mapstructure:"app_codes"`
	Concurrency    int      `mapstructure:"concurrency"`
	Digest         bool     `mapstructure:"digest"`
	ReportOnly     bool     `mapstructure:"report_only"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "compliance-notifier",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
		},
		Input: InputConfig{
			Path:       "results.json",
			WindowDays: 7,
		},
		Output: OutputConfig{
			ReportPath: "report.json",
			Format:     "json",
		},
		Compliance: ComplianceConfig{
			Critical: 0,
			High:     2,
			Medium:   5,
		},
		Templates: TemplateConfig{
			Default: "N/A",
		},
		Recipients: RecipientConfig{
			Environment: "dev",
			Backend:     "none",
			SubKey:      "notification",
		},
		Mail: MailConfig{
			Transport: "spool",
			Port:      25,
			SpoolDir:  "outbox",
		},
		Archive: ArchiveConfig{
			Backend:   "local",
			Dir:       "archive",
			Retention: 90 * 24 * time.Hour,
		},
		Notify: NotifyConfig{
			DefaultAppCode: "ATU0",
			Concurrency:    1,
		},
	}
}
