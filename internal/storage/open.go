package storage

import (
	"context"
	"fmt"
)

const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config выбирает реализацию хранилища артефактов.
type Config struct {
	Backend string
	DataDir string
	S3      S3Config
}

// Open создаёт хранилище по конфигурации.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFS, "":
		return NewFSStore(cfg.DataDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendS3:
		if err := cfg.S3.Validate(); err != nil {
			return nil, err
		}
		cli, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(cli, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
