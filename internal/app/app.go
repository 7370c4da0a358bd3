package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"

	"employee-records/internal/auth"
	"employee-records/internal/config"
	"employee-records/internal/db"
	"employee-records/internal/employee"
	"employee-records/internal/observability"
)

type Options struct {
	LoadDotEnv bool
	// RunMigrations forces migrations on startup regardless of RUN_MIGRATIONS_ON_STARTUP.
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Addr    string
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	cfg, err := config.Load(options.LoadDotEnv)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFile)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	if options.RunMigrations || cfg.RunMigrations {
		if err := db.RunMigrations(ctx, database, logger); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations_applied", nil)
	}

	credentials, closeCredentials, err := newCredentialStore(ctx, cfg, database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	closeAll := func() error {
		observability.FlushSentry()
		return errors.Join(closeCredentials(), database.Close())
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	authService := auth.NewService(credentials, tokens)
	if err := authService.BootstrapFromEnv(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	handler := NewRouter(Routes{
		Auth:      auth.NewHandler(authService),
		Employees: employee.NewHandler(employee.NewRepository(database)),
		Verifier:  tokens,
		Health:    healthHandler(database),
		Metrics:   observability.NewMetrics(),
		Logger:    logger,
	})

	logger.Info("app_ready", map[string]any{
		"env":              cfg.AppEnv,
		"credential_store": cfg.CredentialStore,
	})

	return &Runtime{
		Handler: handler,
		Addr:    cfg.Addr(),
		Logger:  logger,
		Close:   closeAll,
	}, nil
}

func openDatabase(cfg config.Config) (*sql.DB, error) {
	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	database.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return database, nil
}

func newCredentialStore(ctx context.Context, cfg config.Config, database *sql.DB) (auth.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CredentialStore {
	case config.CredentialStorePostgres:
		return auth.NewPostgresCredentialStore(database), noop, nil
	case config.CredentialStoreRedis:
		client, err := auth.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return auth.NewRedisCredentialStore(client, cfg.Redis.Key), client.Close, nil
	default:
		return auth.NewMemoryCredentialStore(), noop, nil
	}
}
