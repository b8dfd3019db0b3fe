package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/api"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/audit"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/config"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/engine"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/scanner"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	ruleCache := store.NewCachedRuleSource(pgStore, redisStore.Client(), cfg.RuleCacheTTL, logger)
	eng := engine.New(pgStore, ruleCache, pgStore, cfg.MatcherWorkers, logger)
	limiter := engine.NewEmitLimiter(redisStore.Client(), cfg.EmitLimitWindow, logger)
	recorder := audit.NewRecorder(pgStore, logger)
	scans := scanner.New(pgStore, cfg.MembershipRenewalWindow, cfg.GrantReportWindow, cfg.ScanWorkers, logger)

	router := api.NewRouter(api.RouterDeps{
		Store:     pgStore,
		RuleCache: ruleCache,
		Engine:    eng,
		Limiter:   limiter,
		EmitLimit: cfg.EmitLimitPerWindow,
		Scanner:   scans,
		Recorder:  recorder,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
