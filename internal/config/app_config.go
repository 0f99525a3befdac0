package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8980.
	Port int `envconfig:"PORT" default:"8980"`

	// DataDir is the root data directory. Defaults to ~/.notifyd.
	DataDir string `envconfig:"NOTIFYD_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PollInterval is the dispatch scheduler tick interval.
	PollInterval time.Duration `envconfig:"NOTIFYD_POLL_INTERVAL" default:"15s"`

	// BatchSize caps how many due jobs one tick may claim. Bounds how long a
	// single tick can spend on provider I/O.
	BatchSize int `envconfig:"NOTIFYD_BATCH_SIZE" default:"50"`

	// SettingsFile is the per-event notification settings YAML file.
	// Defaults to <DataDir>/settings.yaml.
	SettingsFile string `envconfig:"NOTIFYD_SETTINGS_FILE"`

	// FromEmail and FromName identify the sender on every outgoing email.
	FromEmail string `envconfig:"NOTIFYD_FROM_EMAIL" default:"no-reply@rentaro.app"`
	FromName  string `envconfig:"NOTIFYD_FROM_NAME" default:"Rentaro"`

	// SendGrid is the primary transactional email provider. Disabled when the
	// API key is empty.
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`

	// Mailgun is the secondary transactional email provider. Disabled when
	// either field is empty.
	MailgunDomain string `envconfig:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `envconfig:"MAILGUN_API_KEY"`

	// SES is the cloud email fallback. Disabled when the region is empty.
	SESRegion          string `envconfig:"NOTIFYD_SES_REGION"`
	SESAccessKeyID     string `envconfig:"NOTIFYD_SES_ACCESS_KEY_ID"`
	SESSecretAccessKey string `envconfig:"NOTIFYD_SES_SECRET_ACCESS_KEY"`

	// SMTP is the guaranteed last-resort email transport. It needs no external
	// account, only a reachable relay, so it is always part of the chain.
	SMTPHost       string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"25"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"none"` // "none", "starttls", "ssl_tls"

	// WhatsApp Cloud API credentials for the chat-messaging channel. Disabled
	// when either field is empty.
	WhatsAppToken   string `envconfig:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID string `envconfig:"WHATSAPP_PHONE_ID"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.notifyd if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".notifyd")
	}
	if c.SettingsFile == "" {
		c.SettingsFile = filepath.Join(c.DataDir, "settings.yaml")
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (<DataDir>/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite database file.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "notifyd.db")
}
