package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"account-transfer-service/config"
	httpHandler "account-transfer-service/internal/adapter/http/handler"
	"account-transfer-service/internal/adapter/http/middleware"
	"account-transfer-service/internal/adapter/notify"
	memStorage "account-transfer-service/internal/adapter/storage/memory"
	pgStorage "account-transfer-service/internal/adapter/storage/postgres"
	redisStorage "account-transfer-service/internal/adapter/storage/redis"
	"account-transfer-service/internal/core/ports"
	"account-transfer-service/internal/service"
	"account-transfer-service/pkg/logger"

	"github.com/rs/zerolog"
)

// storage bundles the ports one storage driver provides.
type storage struct {
	accounts   ports.AccountRepository
	owners     ports.OwnerRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("ATS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Account Transfer Service")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize account store")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis backs rate limiting and idempotency replay; both are optional.
	var (
		rateLimitStore   middleware.RateLimitStore
		idempotencyCache ports.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		if cfg.RateLimit.Enabled {
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: rate limiting and idempotency replay are off")
	}

	accountSvc := service.NewAccountService(
		store.accounts,
		store.owners,
		store.transactor,
		buildNotifier(cfg.Notifier, logger.Component(log, "notifier")),
		service.RetryPolicy{
			MaxAttempts: cfg.Transfer.MaxAttempts,
			BaseDelay:   cfg.Transfer.BaseDelay,
		},
		logger.Component(log, "account_service"),
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:       accountSvc,
		RateLimitStore:   rateLimitStore,
		IdempotencyCache: idempotencyCache,
		HealthCheckers:   healthCheckers,
		Mode:             cfg.Server.Mode,
		Logger:           logger.Component(log, "http"),
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		s := memStorage.NewStore()
		log.Warn().Msg("Using in-memory account store; state is lost on exit")
		return &storage{
			accounts:   memStorage.NewAccountRepo(s),
			owners:     memStorage.NewOwnerRepo(s),
			transactor: memStorage.NewTransactor(s),
			health:     memStorage.NewHealthCheck(),
			close:      func() {},
		}, nil

	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		return &storage{
			accounts:   pgStorage.NewAccountRepo(pool),
			owners:     pgStorage.NewOwnerRepo(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil
	}
}

// buildNotifier always logs notifications and also posts them when a
// gateway URL is configured.
func buildNotifier(cfg config.NotifierConfig, log zerolog.Logger) ports.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, &http.Client{}, notify.WebhookOptions{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Signer:     notify.NewSigner(cfg.SigningSecret),
		}, log))
		log.Info().Str("url", cfg.WebhookURL).Msg("Webhook notifier enabled")
	}
	return notifiers
}
