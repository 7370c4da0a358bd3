package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Logger is the subset of observability.Logger the runner reports through.
type Logger interface {
	Info(message string, fields map[string]any)
	Error(message string, fields map[string]any)
}

type gooseLogger struct {
	logger Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info("goose", map[string]any{"detail": fmt.Sprintf(format, v...)})
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error("goose_fatal", map[string]any{"detail": fmt.Sprintf(format, v...)})
}

func configure(logger Logger) error {
	goose.SetBaseFS(migrationFiles)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger: logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, database *sql.DB, logger Logger) error {
	if err := configure(logger); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := goose.UpContext(runCtx, database, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func Status(ctx context.Context, database *sql.DB, logger Logger) error {
	if err := configure(logger); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, database, migrationsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Down rolls back the latest migration, or down to targetVersion when it is positive.
func Down(ctx context.Context, database *sql.DB, logger Logger, targetVersion int64) error {
	if err := configure(logger); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if targetVersion > 0 {
		if err := goose.DownToContext(runCtx, database, migrationsDir, targetVersion); err != nil {
			return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
		}
		return nil
	}

	if err := goose.DownContext(runCtx, database, migrationsDir); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}
