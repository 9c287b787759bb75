package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-financing-engine/config"
	httpHandler "invoice-financing-engine/internal/adapter/http/handler"
	pgStorage "invoice-financing-engine/internal/adapter/storage/postgres"
	redisStorage "invoice-financing-engine/internal/adapter/storage/redis"
	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"
	"invoice-financing-engine/internal/service"
	"invoice-financing-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Invoice Financing Engine")

	poolID, err := uuid.Parse(cfg.Financing.PoolID)
	if err != nil {
		log.Fatal().Err(err).Str("pool_id", cfg.Financing.PoolID).Msg("Invalid pool id in config")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	invoiceRepo := pgStorage.NewInvoiceRepo(pool)
	businessRepo := pgStorage.NewBusinessRepo(pool)
	poolRepo := pgStorage.NewPoolRepo(pool)
	positionRepo := pgStorage.NewPositionRepo(pool)
	eventRepo := pgStorage.NewPoolEventRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	statsCache := redisStorage.NewStatsCache(rdb)

	// Ensure the pool ledger row exists
	if err := ensurePool(ctx, poolRepo, poolID, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap liquidity pool")
	}

	// Initialize business services
	financingSvc := service.NewFinancingService(
		invoiceRepo,
		businessRepo,
		poolRepo,
		eventRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		poolID,
		cfg.Financing,
		log,
	)
	liquiditySvc := service.NewLiquidityService(
		poolRepo,
		positionRepo,
		eventRepo,
		transactor,
		statsCache,
		cfg.Financing,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Schedule the overdue sweep
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Financing.SweepSchedule, func() {
		count, err := financingSvc.SweepOverdue(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Overdue sweep failed")
			return
		}
		if count > 0 {
			log.Info().Int("defaulted", count).Msg("Overdue sweep completed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Financing.SweepSchedule).Msg("Invalid sweep schedule")
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		FinancingSvc:   financingSvc,
		LiquiditySvc:   liquiditySvc,
		PoolID:         poolID,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// ensurePool creates the pool ledger row on first boot.
func ensurePool(ctx context.Context, poolRepo ports.PoolRepository, poolID uuid.UUID, log zerolog.Logger) error {
	existing, err := poolRepo.Get(ctx, poolID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	if err := poolRepo.Create(ctx, &domain.Pool{
		ID:        poolID,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return err
	}
	log.Info().Str("pool_id", poolID.String()).Msg("Liquidity pool created")
	return nil
}
