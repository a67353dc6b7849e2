// Package cli provides the startup steps shared by cmd/financas,
// cmd/financas-worker and cmd/adduser.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"financas/internal/config"
	"financas/internal/log"
	"financas/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the configuration, validates it and installs a
// logger tagged with component as the slog default.
func Bootstrap(component string) (*config.Config, *log.Logger, error) {
	LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := log.New(cfg.LogConfig(component))
	log.SetDefault(logger)
	return cfg, logger, nil
}

// InitSQLite opens the database and applies pending migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	logger = log.Or(logger, log.ComponentStorage)
	version, dirty, err := storage.SchemaVersion(dbPath)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		repo.Close()
		return nil, fmt.Errorf("schema version %d is dirty, fix the database by hand", version)
	}
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version,
		log.FieldOperation, log.OpStartup)
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		logger.Error(msg, log.FieldError, err)
	}
	os.Exit(1)
}
