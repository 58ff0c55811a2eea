package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"artengine/internal/adapter/repo"
	"artengine/internal/engine"
	"artengine/internal/infra"
	"artengine/internal/storage"
)

func main() {
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	registry := repo.NewJobRegistry(pool)
	if err := registry.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: ensure schema failed")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	eng := engine.New(registry, store, logger, engine.Options{
		BaseTimeout:      cfg.BaseTimeout,
		PerItemTimeout:   cfg.PerItemTimeout,
		TimeoutSlack:     cfg.TimeoutSlack,
		CacheBudgetBytes: cfg.CacheBudgetBytes,
	})

	go engine.NewSweeper(registry, store, logger, cfg).Run(ctx)

	if err := eng.Poll(ctx, cfg.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
