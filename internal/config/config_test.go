package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "auto", cfg.App.Migrations)
	assert.Equal(t, uint64(1), cfg.Mail.Retries)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_DEV", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("MAIL_ENDPOINT", "https://mail.example.com/send")
	t.Setenv("MAIL_RETRY_BACKOFF", "2s")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "https://mail.example.com/send", cfg.Mail.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Mail.RetryBackoff)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_RequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_DEV", "false")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_SECRET", "a-real-secret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_RejectsUnknownMigrationMode(t *testing.T) {
	t.Setenv("APP_DEV", "true")
	t.Setenv("APP_MIGRATIONS", "yolo")
	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_URL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "quotes", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/quotes?sslmode=disable", d.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=quotes sslmode=disable", d.DSN())
}
