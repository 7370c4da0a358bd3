package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	CredentialStoreMemory   = "memory"
	CredentialStorePostgres = "postgres"
	CredentialStoreRedis    = "redis"
)

type Config struct {
	Port           string
	AppEnv         string
	DatabaseURL    string
	JWTSecret      string
	AccessTokenTTL time.Duration
	AdminUsername  string
	AdminPassword  string
	RunMigrations  bool
	SentryDSN      string
	LogLevel       string
	LogFile        string

	CredentialStore string
	Redis           RedisConfig
	DB              DBConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Load reads configuration from the environment, optionally seeding it from a
// .env file first. Variables that are set but empty fall back to defaults.
func Load(loadDotEnv bool) (Config, error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Port:           strings.TrimSpace(v.GetString("PORT")),
		AppEnv:         strings.TrimSpace(v.GetString("APP_ENV")),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		AccessTokenTTL: time.Duration(positiveInt(v, "ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		AdminUsername:  strings.TrimSpace(v.GetString("ADMIN_USERNAME")),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		RunMigrations:  v.GetBool("RUN_MIGRATIONS_ON_STARTUP"),
		SentryDSN:      strings.TrimSpace(v.GetString("SENTRY_DSN")),
		LogLevel:       strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFile:        strings.TrimSpace(v.GetString("LOG_FILE")),

		CredentialStore: strings.ToLower(strings.TrimSpace(v.GetString("CREDENTIAL_STORE"))),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Key:      strings.TrimSpace(v.GetString("REDIS_CREDENTIALS_KEY")),
		},
		DB: DBConfig{
			MaxOpenConns:    positiveInt(v, "DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    positiveInt(v, "DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(positiveInt(v, "DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
			ConnMaxIdleTime: time.Duration(positiveInt(v, "DB_CONN_MAX_IDLE_TIME_MINUTES", 10)) * time.Minute,
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDatabase reads only what the migration command needs.
func LoadDatabase(loadDotEnv bool) (databaseURL, logLevel string, err error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	databaseURL = strings.TrimSpace(v.GetString("DATABASE_URL"))
	if databaseURL == "" {
		return "", "", fmt.Errorf("missing required env: DATABASE_URL")
	}
	return databaseURL, strings.TrimSpace(v.GetString("LOG_LEVEL")), nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing required env: DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing required env: JWT_SECRET")
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}

	switch c.CredentialStore {
	case CredentialStoreMemory, CredentialStorePostgres:
	case CredentialStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("missing required env: REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported CREDENTIAL_STORE %q", c.CredentialStore)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RUN_MIGRATIONS_ON_STARTUP", false)
	v.SetDefault("CREDENTIAL_STORE", CredentialStoreMemory)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CREDENTIALS_KEY", "employee-records:credentials")
}

func positiveInt(v *viper.Viper, key string, fallback int) int {
	if !v.IsSet(key) {
		return fallback
	}
	parsed := v.GetInt(key)
	if parsed <= 0 {
		return fallback
	}
	return parsed
}
