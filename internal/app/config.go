package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/data/db"
	"github.com/xwerkax/BloomlyApp/internal/platform/envutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type Config struct {
	LogMode     string
	HTTPAddr    string
	ServiceName string
	Environment string
	CORSOrigins string

	DBDriver   string
	SQLitePath string
	Postgres   db.PostgresConfig

	ArtifactStore   string
	ArtifactDir     string
	GCSBucket       string
	GCSPrefix       string
	GCSCredentials  string
	GCSEmulatorHost string

	RedisAddr string

	Timezone string
	Location *time.Location

	WorkerEnabled     bool
	WorkerConcurrency int
	TrainConcurrency  int

	Thresholds config.Thresholds
}

// LoadDotEnv reads .env when present. Values already in the environment win.
func LoadDotEnv(log *logger.Logger) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Could not read .env", "error", err)
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "bloomly"),
		Environment: envutil.String("APP_ENV", "development"),
		CORSOrigins: envutil.String("CORS_ORIGINS", ""),

		DBDriver:   strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		SQLitePath: envutil.String("SQLITE_PATH", "bloomly.db"),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "bloomly"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},

		ArtifactStore:   strings.ToLower(envutil.String("ARTIFACT_STORE", ArtifactStoreDB)),
		ArtifactDir:     envutil.String("ARTIFACT_DIR", "ml_models"),
		GCSBucket:       envutil.String("GCS_BUCKET", ""),
		GCSPrefix:       envutil.String("GCS_PREFIX", "ml_models"),
		GCSCredentials:  envutil.String("GCS_CREDENTIALS_FILE", ""),
		GCSEmulatorHost: envutil.String("GCS_EMULATOR_HOST", ""),

		RedisAddr: envutil.String("REDIS_ADDR", ""),

		Timezone: envutil.String("TIMEZONE", "Europe/Warsaw"),

		WorkerEnabled:     envutil.Bool("WORKER_ENABLED", true),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 2),
		TrainConcurrency:  envutil.Int("TRAIN_CONCURRENCY", 4),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	th, err := config.LoadThresholds(envutil.String("BLOOMLY_THRESHOLDS_FILE", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Thresholds = th

	if cfg.TrainConcurrency < 1 {
		cfg.TrainConcurrency = 1
	}
	log.Info("Config loaded",
		"db_driver", cfg.DBDriver,
		"artifact_store", cfg.ArtifactStore,
		"timezone", cfg.Timezone,
		"redis", cfg.RedisAddr != "",
		"worker_concurrency", cfg.WorkerConcurrency,
		"train_concurrency", cfg.TrainConcurrency,
	)
	return cfg, nil
}
