// Package config loads models.Config from defaults, a config file and
// COMPLIANCE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// COMPLIANCE_MAIL_HOST overrides mail.host
const EnvPrefix = "COMPLIANCE"

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := models.DefaultConfig()

	// -- Logger --
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.service_name", d.Logger.ServiceName)
	v.SetDefault("logger.log_file", d.Logger.LogFile)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.compress", d.Logger.Compress)

	// -- Input / Output --
	v.SetDefault("input.path", d.Input.Path)
	v.SetDefault("input.start_date", d.Input.StartDate)
	v.SetDefault("input.end_date", d.Input.EndDate)
	v.SetDefault("input.window_days", d.Input.WindowDays)
	v.SetDefault("output.report_path", d.Output.ReportPath)
	v.SetDefault("output.format", d.Output.Format)

	// -- Compliance thresholds --
	v.SetDefault("compliance.critical", d.Compliance.Critical)
	v.SetDefault("compliance.high", d.Compliance.High)
	v.SetDefault("compliance.medium", d.Compliance.Medium)

	// -- Templates --
	v.SetDefault("templates.app_report", d.Templates.AppReport)
	v.SetDefault("templates.app_subject", d.Templates.AppSubject)
	v.SetDefault("templates.digest", d.Templates.Digest)
	v.SetDefault("templates.digest_subject", d.Templates.DigestSubject)
	v.SetDefault("templates.default", d.Templates.Default)

	// -- Recipients --
	v.SetDefault("recipients.environment", d.Recipients.Environment)
	v.SetDefault("recipients.backend", d.Recipients.Backend)
	v.SetDefault("recipients.sub_key", d.Recipients.SubKey)
	v.SetDefault("recipients.default_to", d.Recipients.DefaultTo)
	v.SetDefault("recipients.default_cc", d.Recipients.DefaultCC)
	v.SetDefault("recipients.digest_to", d.Recipients.DigestTo)
	v.SetDefault("recipients.file", d.Recipients.File)
	v.SetDefault("recipients.vault.address", d.Recipients.Vault.Address)
	v.SetDefault("recipients.vault.token", d.Recipients.Vault.Token)
	v.SetDefault("recipients.vault.mount", d.Recipients.Vault.Mount)
	v.SetDefault("recipients.vault.prefix", d.Recipients.Vault.Prefix)
	v.SetDefault("recipients.vault.timeout", d.Recipients.Vault.Timeout)

	// -- Mail --
	v.SetDefault("mail.transport", d.Mail.Transport)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("mail.host", d.Mail.Host)
	v.SetDefault("mail.port", d.Mail.Port)
	v.SetDefault("mail.username", d.Mail.Username)
	v.SetDefault("mail.password", d.Mail.Password)
	v.SetDefault("mail.spool_dir", d.Mail.SpoolDir)
	v.SetDefault("mail.extra_cc", d.Mail.ExtraCC)

	// -- Archive --
	v.SetDefault("archive.backend", d.Archive.Backend)
	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.retention", d.Archive.Retention)
	v.SetDefault("archive.bucket", d.Archive.Bucket)
	v.SetDefault("archive.region", d.Archive.Region)
	v.SetDefault("archive.prefix", d.Archive.Prefix)
	v.SetDefault("archive.dsn", d.Archive.DSN)

	// -- Notify --
	v.SetDefault("notify.default_app_code", d.Notify.DefaultAppCode)
	v.SetDefault("notify.app_codes", d.Notify.AppCodes)
	v.SetDefault("notify.concurrency", d.Notify.Concurrency)
	v.SetDefault("notify.digest", d.Notify.Digest)
	v.SetDefault("notify.report_only", d.Notify.ReportOnly)
}

// Configure points v at cfgFile, or at ./compliance.{toml,yaml} when empty,
// and enables environment overrides
func Configure(v *viper.Viper, cfgFile string) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("compliance")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("recipients.vault.token", "VAULT_TOKEN", EnvPrefix+"_RECIPIENTS_VAULT_TOKEN")
	_ = v.BindEnv("recipients.vault.address", "VAULT_ADDR", EnvPrefix+"_RECIPIENTS_VAULT_ADDRESS")
}

// Read loads the config file if there is one. A missing default file is
// not an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if f := v.ConfigFileUsed(); f != "" {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// FromViper unmarshals and validates the configuration
func FromViper(v *viper.Viper) (*models.Config, error) {
	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load is Configure, Read and FromViper on a fresh viper instance
func Load(cfgFile string) (*models.Config, error) {
	v := viper.New()
	Configure(v, cfgFile)
	if err := Read(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks enum fields and ranges
func Validate(c *models.Config) error {
	if c.Compliance.Critical < 0 || c.Compliance.High < 0 || c.Compliance.Medium < 0 {
		return fmt.Errorf("compliance thresholds must not be negative")
	}
	if c.Notify.Concurrency < 1 {
		return fmt.Errorf("notify.concurrency must be a positive integer")
	}
	if err := oneOf("output.format", c.Output.Format, "json", "terminal", "sarif"); err != nil {
		return err
	}
	if err := oneOf("recipients.backend", c.Recipients.Backend, "vault", "file", "none"); err != nil {
		return err
	}
	if err := oneOf("mail.transport", c.Mail.Transport, "smtp", "spool"); err != nil {
		return err
	}
	if err := oneOf("archive.backend", c.Archive.Backend, "local", "s3", "postgres", "none"); err != nil {
		return err
	}
	if c.Recipients.Backend == "file" && c.Recipients.File == "" {
		return fmt.Errorf("recipients.file is required for the file backend")
	}
	if c.Recipients.Backend == "vault" && c.Recipients.Vault.Address == "" {
		return fmt.Errorf("recipients.vault.address is required for the vault backend")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}
