package blob

import (
	"context"
	"fmt"

	"bikerental/internal/config"
	"bikerental/internal/infra/blob/fs"
	"bikerental/internal/infra/blob/memory"
	"bikerental/internal/infra/blob/s3"
)

// Open selects a Store implementation from the archive configuration.
//
//	fs:     cfg.FSRoot (default ./snapshots)
//	s3:     cfg.S3Bucket (required), cfg.S3Region, cfg.S3Endpoint, cfg.S3PathStyle
//	memory: process memory
func Open(ctx context.Context, cfg config.Archive) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMockS3ForTests exposes the in-process S3 fake for cross-package tests.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }
