package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"employee-records/internal/config"
	"employee-records/internal/db"
	"employee-records/internal/observability"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	databaseURL, logLevel, err := config.LoadDatabase(true)
	if err != nil {
		observability.NewLogger("info", "").Error("load_config_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger := observability.NewLogger(logLevel, "")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("open_database_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer database.Close()

	if err := database.PingContext(ctx); err != nil {
		logger.Error("ping_database_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = db.RunMigrations(ctx, database, logger)
	case "status":
		err = db.Status(ctx, database, logger)
	case "down":
		err = db.Down(ctx, database, logger, *target)
	default:
		logger.Error("unsupported_command", map[string]any{"command": *command})
		os.Exit(1)
	}
	if err != nil {
		logger.Error("migration_command_failed", map[string]any{"command": *command, "error": err.Error()})
		os.Exit(1)
	}

	logger.Info("migration_command_completed", map[string]any{"command": *command})
}
