package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"artengine/internal/adapter/repo"
	"artengine/internal/domain"
	"artengine/internal/engine"
	"artengine/internal/http/handlers"
	httpapi "artengine/internal/http/httpapi"
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

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	// With a database the API only enqueues and a separate worker process
	// runs jobs; without one everything runs in-process off the in-memory
	// registry.
	var registry domain.JobRegistry
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		pg := repo.NewJobRegistry(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: ensure schema failed")
		}
		registry = pg
	} else {
		logger.Warn().Msg("api: no DATABASE_URL, running jobs in-process")
		registry = repo.NewMemoryRegistry()
	}

	eng := engine.New(registry, store, logger, engine.Options{
		BaseTimeout:      cfg.BaseTimeout,
		PerItemTimeout:   cfg.PerItemTimeout,
		TimeoutSlack:     cfg.TimeoutSlack,
		CacheBudgetBytes: cfg.CacheBudgetBytes,
	})

	if cfg.DatabaseURL == "" {
		go func() {
			if err := eng.Poll(ctx, cfg.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("api: inline poller stopped")
			}
		}()
	}
	go engine.NewSweeper(registry, store, logger, cfg).Run(ctx)

	app := handlers.NewApp(eng, registry, store, logger)
	router := httpapi.NewRouter(app, cfg.CORSOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
