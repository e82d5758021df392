// Package app собирает сервер из конфигурации: хранилище байт, метаданные, сервис и HTTP.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/app/transferhttp"
	"github.com/sir_venger/resumable_lite/internal/config"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/internal/usecase/transfersvc"
)

// App — собранный сервер. Close освобождает хранилище метаданных.
type App struct {
	Handler  http.Handler
	Service  *transfersvc.Transfers
	metadata meta.Store
}

// New поднимает хранилища по конфигурации и создаёт HTTP-обработчик.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	artifacts, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open artifact storage: %w", err)
	}

	metadata, err := meta.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}

	svc := transfersvc.New(transfersvc.Deps{
		Artifacts:    artifacts,
		MetaStorage:  metadata,
		Logger:       logger.Named("transfers"),
		MaxChunkSize: cfg.MaxChunkBytes(),
		LeaseTTL:     cfg.LeaseTTL,
	})

	handler := transferhttp.New(svc, transferhttp.Options{
		Logger:       logger.Named("http"),
		MaxChunkSize: cfg.MaxChunkBytes(),
		GCTTL:        cfg.GC.TTL,
	})

	return &App{Handler: handler, Service: svc, metadata: metadata}, nil
}

// StartGC запускает периодическую очистку брошенных загрузок.
func (a *App) StartGC(cfg *config.Config, logger *zap.Logger) func() {
	return transferhttp.StartGC(a.Service, logger.Named("gc"), cfg.GC.TTL, cfg.GC.Interval)
}

func (a *App) Close() error {
	return a.metadata.Close()
}
