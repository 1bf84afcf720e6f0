package core

import (
	"context"
	"fmt"

	"bikerental/internal/config"
	"bikerental/internal/infra/persistence/file"
	"bikerental/internal/infra/persistence/memory"
	"bikerental/internal/infra/persistence/postgres"
	"bikerental/internal/infra/persistence/redis"
	"bikerental/internal/infra/persistence/sqlite"
	"bikerental/pkg/domain"
)

// OpenDocumentBackend selects a backend from cfg. An empty driver means the
// JSON file backend.
//
//	file:     cfg.DataFile (default ./data.json)
//	sqlite:   cfg.SQLitePath
//	postgres: cfg.PostgresDSN
//	redis:    cfg.RedisAddr, cfg.RedisKey
//	memory:   nothing persisted
func OpenDocumentBackend(ctx context.Context, cfg config.Storage) (domain.DocumentBackend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = domain.StorageFile
	}
	switch driver {
	case domain.StorageFile:
		return file.New(cfg.DataFile)
	case domain.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case domain.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case domain.StorageRedis:
		return redis.Open(ctx, cfg.RedisAddr, cfg.RedisKey)
	case domain.StorageMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
