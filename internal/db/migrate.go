package db

import (
	"github.com/dbuatti/danielebuatti-sub001/internal/config"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Migrate applies the schema. "auto" uses gorm AutoMigrate on every model;
// "sql" runs the versioned files under MigrationsDir (postgres only).
func Migrate(conn *gorm.DB, cfg *config.Config) error {
	switch cfg.App.Migrations {
	case "sql":
		if cfg.Database.Driver != "postgres" {
			return errors.New("sql migrations require DB_DRIVER=postgres")
		}
		return runSQLMigrations(cfg.App.MigrationsDir, cfg.Database.URL())
	default:
		return AutoMigrate(conn)
	}
}

// AutoMigrate creates or updates every table from the models.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range models.AllModels() {
		if err := conn.AutoMigrate(m); err != nil {
			return errors.Wrapf(err, "automigrate %T", m)
		}
	}
	return nil
}

func runSQLMigrations(dir, url string) error {
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
