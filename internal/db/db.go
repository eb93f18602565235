// Package db opens the database, applies migrations and seeds operator accounts.
package db

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dbuatti/danielebuatti-sub001/internal/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// connectAttempts bounds the startup wait for Postgres to accept connections.
const connectAttempts = 10

// Connect opens the configured database, retrying while the server starts up.
func Connect(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.New(log, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		log.WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port, "dbname": cfg.Name, "user": cfg.User}).
			Info("connecting to postgres")
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		log.WithField("path", cfg.Path).Info("opening sqlite database")
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	var conn *gorm.DB
	attempt := 0
	open := func() error {
		attempt++
		var err error
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = conn.Exec("SELECT 1").Error
		}
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("database not ready")
		}
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), connectAttempts-1)
	if err := backoff.Retry(open, policy); err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	if cfg.Driver == "sqlite" {
		// One writer; also keeps a ":memory:" database on a single connection.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, errors.Wrap(err, "sqlite pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return conn, nil
}

// Ping checks connectivity for health probes.
func Ping(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
