// Package main is the entrypoint for the ParcoursMaker API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parcoursmaker/parcoursmaker/internal/api"
	"github.com/parcoursmaker/parcoursmaker/internal/api/handler"
	mw "github.com/parcoursmaker/parcoursmaker/internal/api/middleware"
	"github.com/parcoursmaker/parcoursmaker/internal/api/response"
	"github.com/parcoursmaker/parcoursmaker/internal/cache"
	"github.com/parcoursmaker/parcoursmaker/internal/config"
	"github.com/parcoursmaker/parcoursmaker/internal/extraction"
	"github.com/parcoursmaker/parcoursmaker/internal/imagefetch"
	"github.com/parcoursmaker/parcoursmaker/internal/parcours"
	"github.com/parcoursmaker/parcoursmaker/internal/recordstore"
	"github.com/parcoursmaker/parcoursmaker/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "extractor", cfg.Extractor.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Build the extraction pipeline
	pgStore := store.NewPostgresStore(pool)

	extractorClient := extraction.NewHTTPClient(cfg.Extractor.BaseURL, cfg.Extractor.RequestTimeout)
	orchestrator := extraction.NewOrchestrator(extractorClient, extraction.Options{
		WarmupDelay:     cfg.Extractor.WarmupDelay,
		PollInterval:    cfg.Extractor.PollInterval,
		MaxPollAttempts: cfg.Extractor.MaxPollAttempts,
		ListingDomains:  cfg.Extractor.ListingDomains,
	})
	fetcher := imagefetch.NewFetcher(cfg.Images.FetchTimeout)
	extractionSvc := parcours.NewExtractionService(orchestrator, fetcher, pgStore, redisCache)

	// 6. Build the commit path against the record store
	storeClient := recordstore.NewHTTPClient(
		cfg.RecordStore.TestBaseURL,
		cfg.RecordStore.ProductionBaseURL,
		cfg.RecordStore.APIKey,
		cfg.RecordStore.Timeout,
	)
	dispatcher := recordstore.NewDispatcher(storeClient)
	commitSvc := parcours.NewCommitService(dispatcher, pgStore)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:          healthHandler(pgStore, redisCache),
		StartExtractionHandler: handler.NewStartExtractionHandler(extractionSvc),
		GetRunHandler:          handler.NewGetRunHandler(extractionSvc),
		CommitHandler:          handler.NewCommitHandler(commitSvc),
		CommitHistoryHandler:   handler.NewCommitHistoryHandler(commitSvc),
		CreateTemplateHandler:  handler.NewCreateTemplateHandler(storeClient),
		UpdateTemplateHandler:  handler.NewUpdateTemplateHandler(storeClient),
		DeleteTemplateHandler:  handler.NewDeleteTemplateHandler(storeClient),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
