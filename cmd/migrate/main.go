// Command migrate applies or rolls back the Postgres schema.
package main

import (
	"errors"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"ResumeMailer/internal/config"
	"ResumeMailer/internal/db"
	"ResumeMailer/internal/logging"
)

func main() {
	action := flag.String("action", "up", "Migration action: up, down, version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, "console", "")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg.DatabaseURL, *action, logger); err != nil {
		logger.Fatal("migration failed", zap.String("action", *action), zap.Error(err))
	}
}

func run(databaseURL, action string, logger *zap.Logger) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	switch action {
	case "up":
		logger.Info("running migrations")
		if err := db.RunMigrations(databaseURL); err != nil {
			return err
		}
		logger.Info("migrations completed")

	case "down":
		logger.Info("rolling back last migration")
		if err := db.RollbackMigrations(databaseURL); err != nil {
			return err
		}
		logger.Info("migration rolled back")

	case "version":
		version, dirty, err := db.MigrationVersion(databaseURL)
		if err != nil {
			return err
		}
		logger.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}
