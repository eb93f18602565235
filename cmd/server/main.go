package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/config"
	"github.com/dbuatti/danielebuatti-sub001/internal/db"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "quotes",
		Usage: "quote and invoice back-office",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrateOnly,
			},
			{
				Name:  "create-admin",
				Usage: "create the admin account or reset its password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, EnvVars: []string{"ADMIN_EMAIL"}},
					&cli.StringFlag{Name: "name", EnvVars: []string{"ADMIN_NAME"}},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
				},
				Action: createAdmin,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// setup loads configuration, configures logging and opens the database.
func setup() (*config.Config, *log.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := log.New()
	if cfg.App.Dev {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	conn, err := db.Connect(cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "connect database")
	}
	return cfg, logger, conn, nil
}

func migrateOnly(_ *cli.Context) error {
	cfg, logger, conn, err := setup()
	if err != nil {
		return err
	}
	if err := db.Migrate(conn, cfg); err != nil {
		return errors.Wrap(err, "migrate")
	}
	logger.WithField("mode", cfg.App.Migrations).Info("migrations completed")
	return nil
}

func createAdmin(c *cli.Context) error {
	_, logger, conn, err := setup()
	if err != nil {
		return err
	}
	u, err := db.EnsureAdmin(conn, c.String("email"), c.String("name"), c.String("password"))
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{"user_id": u.ID, "email": u.Email}).Info("admin account ready")
	return nil
}

func serve(_ *cli.Context) error {
	cfg, logger, conn, err := setup()
	if err != nil {
		return err
	}
	if err := db.Migrate(conn, cfg); err != nil {
		return errors.Wrap(err, "migrate")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(cfg, conn, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "server")
	case <-quit:
		logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("server stopped gracefully")
	return nil
}
