// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bikerental/pkg/domain"
)

// App is the full server configuration.
type App struct {
	Addr       string
	Storage    Storage
	Archive    Archive
	LogLevel   slog.Level
	LogFormat  string
	WriteQueue int
}

// Storage selects and configures the document backend.
type Storage struct {
	Driver      domain.StorageDriver
	DataFile    string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string
	RedisKey    string
}

// Archive configures the optional snapshot archive. An empty Driver disables it.
type Archive struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	// Keep bounds the number of retained snapshots; zero keeps all.
	Keep int
}

// Enabled reports whether snapshots are archived.
func (a Archive) Enabled() bool { return a.Driver != "" }

// Load reads BIKERENTAL_* variables, applying defaults for anything unset.
func Load() (App, error) {
	var errs []error
	cfg := App{
		Addr: addr(),
		Storage: Storage{
			Driver:      domain.StorageDriver(strings.ToLower(getenv("BIKERENTAL_STORAGE_DRIVER", string(domain.StorageFile)))),
			DataFile:    getenv("BIKERENTAL_DATA_FILE", "./data.json"),
			SQLitePath:  getenv("BIKERENTAL_SQLITE_PATH", "./bikerental.db"),
			PostgresDSN: getenv("BIKERENTAL_POSTGRES_DSN", "postgres://localhost/bikerental?sslmode=disable"),
			RedisAddr:   getenv("BIKERENTAL_REDIS_ADDR", "localhost:6379"),
			RedisKey:    getenv("BIKERENTAL_REDIS_KEY", "bikerental:document"),
		},
		Archive: Archive{
			Driver:     strings.ToLower(os.Getenv("BIKERENTAL_ARCHIVE_DRIVER")),
			FSRoot:     getenv("BIKERENTAL_ARCHIVE_FS_ROOT", "./snapshots"),
			S3Bucket:   os.Getenv("BIKERENTAL_ARCHIVE_S3_BUCKET"),
			S3Region:   getenv("BIKERENTAL_ARCHIVE_S3_REGION", "us-east-1"),
			S3Endpoint: os.Getenv("BIKERENTAL_ARCHIVE_S3_ENDPOINT"),
		},
		LogFormat: strings.ToLower(getenv("BIKERENTAL_LOG_FORMAT", "json")),
	}

	switch cfg.Storage.Driver {
	case domain.StorageFile, domain.StorageSQLite, domain.StoragePostgres, domain.StorageRedis, domain.StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("BIKERENTAL_STORAGE_DRIVER: unknown driver %q", cfg.Storage.Driver))
	}

	switch cfg.Archive.Driver {
	case "", "fs", "s3", "memory":
	default:
		errs = append(errs, fmt.Errorf("BIKERENTAL_ARCHIVE_DRIVER: unknown driver %q", cfg.Archive.Driver))
	}
	if cfg.Archive.Driver == "s3" && cfg.Archive.S3Bucket == "" {
		errs = append(errs, errors.New("BIKERENTAL_ARCHIVE_S3_BUCKET is required when archive driver is s3"))
	}
	if v := os.Getenv("BIKERENTAL_ARCHIVE_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BIKERENTAL_ARCHIVE_S3_PATH_STYLE: %w", err))
		}
		cfg.Archive.S3PathStyle = b
	}

	if v := os.Getenv("BIKERENTAL_ARCHIVE_KEEP"); v != "" {
		keep, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("BIKERENTAL_ARCHIVE_KEEP: %w", err))
		case keep < 0:
			errs = append(errs, fmt.Errorf("BIKERENTAL_ARCHIVE_KEEP: must not be negative, got %d", keep))
		}
		cfg.Archive.Keep = keep
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("BIKERENTAL_LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("BIKERENTAL_LOG_LEVEL: %w", err))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("BIKERENTAL_LOG_FORMAT: want json or text, got %q", cfg.LogFormat))
	}

	queue, err := strconv.Atoi(getenv("BIKERENTAL_WRITE_QUEUE", "64"))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("BIKERENTAL_WRITE_QUEUE: %w", err))
	case queue <= 0:
		errs = append(errs, fmt.Errorf("BIKERENTAL_WRITE_QUEUE: must be positive, got %d", queue))
	}
	cfg.WriteQueue = queue

	if err := errors.Join(errs...); err != nil {
		return App{}, err
	}
	return cfg, nil
}

// NewLogger builds the process logger described by cfg.
func (cfg App) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func addr() string {
	if v := os.Getenv("BIKERENTAL_ADDR"); v != "" {
		return v
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":3000"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
