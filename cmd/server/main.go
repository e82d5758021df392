package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/resumable_lite/internal/app"
	"github.com/sir_venger/resumable_lite/internal/config"
	"github.com/sir_venger/resumable_lite/internal/logger"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
)

// main поднимает сервер загрузки и обеспечивает корректное завершение по сигналу.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if meta.IsPostgres(cfg.MetaDSN) {
		if err := meta.ApplyMigrations(ctx, cfg.MetaDSN); err != nil {
			return err
		}
	}

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			lg.Warn("close meta store", zap.Error(err))
		}
	}()

	stopGC := a.StartGC(cfg, lg)
	defer stopGC()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", cfg.Backend),
			zap.String("max_chunk_size", cfg.MaxChunkSize),
			zap.Duration("gc_ttl", cfg.GC.TTL),
			zap.Duration("gc_interval", cfg.GC.Interval),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Сценарий graceful shutdown при получении SIGTERM/SIGINT.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Warn("shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
