// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig `envconfig:"DB"`
	App      AppConfig
	Auth     AuthConfig
	Mail     MailConfig
	Extract  ExtractConfig
	Audience AudienceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `default:"8080"`
	ReadTimeout  time.Duration `split_words:"true" default:"15s"`
	WriteTimeout time.Duration `split_words:"true" default:"30s"`
	IdleTimeout  time.Duration `split_words:"true" default:"60s"`
	// CORSOrigins are the sites allowed to call the public quote and newsletter endpoints.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	// PublicURL prefixes quote links in emails.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver   string `default:"postgres"`
	Host     string `default:"localhost"`
	Port     int    `default:"5432"`
	User     string `default:"quotes"`
	Password string `default:"quotes"`
	Name     string `default:"quotes"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	// Path is the sqlite file (":memory:" for throwaway runs).
	Path  string `default:"quotes.db"`
	Debug bool   `default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev bool `default:"false"`
	// Migrations selects "auto" (gorm AutoMigrate) or "sql" (golang-migrate files).
	Migrations    string `default:"auto"`
	MigrationsDir string `split_words:"true" default:"migrations"`
}

// AuthConfig holds session and token settings.
type AuthConfig struct {
	Secret     string        `default:"devsessionsecret"`
	SessionTTL time.Duration `split_words:"true" default:"336h"`
}

// MailConfig configures the email notification function.
type MailConfig struct {
	Endpoint     string        `default:""`
	APIKey       string        `envconfig:"API_KEY" default:""`
	Timeout      time.Duration `default:"10s"`
	Retries      uint64        `default:"1"`
	RetryBackoff time.Duration `split_words:"true" default:"500ms"`
}

// ExtractConfig configures the AI extraction function.
type ExtractConfig struct {
	Endpoint string        `default:""`
	APIKey   string        `envconfig:"API_KEY" default:""`
	Timeout  time.Duration `default:"60s"`
}

// AudienceConfig configures the newsletter audience provider.
type AudienceConfig struct {
	Endpoint string        `default:""`
	APIKey   string        `envconfig:"API_KEY" default:""`
	Timeout  time.Duration `default:"10s"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// Variables are prefixed by section: SERVER_PORT, DB_HOST, MAIL_ENDPOINT, AUTH_SECRET...
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.App.Migrations != "auto" && cfg.App.Migrations != "sql" {
		return nil, errors.Errorf("APP_MIGRATIONS must be auto or sql, got %q", cfg.App.Migrations)
	}
	if !cfg.App.Dev && cfg.Auth.Secret == "devsessionsecret" {
		return nil, errors.New("AUTH_SECRET must be set outside dev mode")
	}
	return &cfg, nil
}
