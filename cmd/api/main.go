package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fuel-wallet/config"
	"fuel-wallet/internal/adapter/events"
	httpHandler "fuel-wallet/internal/adapter/http/handler"
	"fuel-wallet/internal/adapter/storage/memory"
	pgStorage "fuel-wallet/internal/adapter/storage/postgres"
	redisStorage "fuel-wallet/internal/adapter/storage/redis"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/internal/service"
	"fuel-wallet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FWL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("scanner", cfg.Scanner.Mode).
		Msg("Starting Fuel Wallet")

	if cfg.Token.Secret == "" || cfg.JWT.Secret == "" {
		log.Fatal().Msg("token.secret and jwt.secret must be set (FWL_TOKEN_SECRET, FWL_JWT_SECRET)")
	}

	defaults, err := walletDefaults(cfg.Wallet)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid wallet defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var healthCheckers []ports.HealthChecker

	// Ledger storage
	var accountRepo ports.AccountRepository
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		log.Info().Msg("PostgreSQL connected")
		accountRepo = pgStorage.NewAccountRepo(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewLedgerHealth(pool))
	default:
		accountRepo = memory.NewAccountRepo()
		log.Warn().Msg("Using in-memory ledger storage, balances are lost on restart")
	}

	// Token sequence, idempotency and rate limiting
	var (
		seqStore    ports.TokenSequenceStore
		idempCache  ports.IdempotencyCache
		rateLimiter ports.RateLimiter
		memCache    *memory.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")
		seqStore = redisStorage.NewTokenSequenceStore(rdb)
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealth(rdb))
	} else {
		seqStore = memory.NewTokenSequenceStore()
		memCache = memory.NewIdempotencyCache()
		idempCache = memCache
	}

	// Ledger events
	var publisher ports.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Component(log, "events"))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing ledger events to Kafka")
	} else {
		publisher = events.NewLogPublisher(logger.Component(log, "events"))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	// Core services
	accounts := service.NewAccountRegistry(accountRepo, defaults, logger.Component(log, "ledger"))
	generator := service.NewTokenGenerator(cfg.Token.Validity, service.NewHMACTokenSigner(cfg.Token.Secret), seqStore)
	settlement := service.NewSettlementService(generator, accounts, idempCache, publisher, cfg.Token.EnforceLatest, logger.Component(log, "settlement"))
	walletSvc := service.NewWalletService(accounts, publisher, logger.Component(log, "wallet"))
	presenter := service.NewTokenPresenter(accounts, generator, cfg.Token.RefreshInterval, logger.Component(log, "presenter"))
	identity := service.NewJWTIdentityService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	exchanges := service.NewExchangeRegistry(
		settlement,
		scannerFactory(cfg.Scanner, presenter, log),
		cfg.Scanner.CaptureTimeout,
		logger.Component(log, "exchange"),
	)

	upkeep := service.NewMaintenance(logger.Component(log, "upkeep"))
	if err := upkeep.AddJob(cfg.Upkeep.Schedule, "presenter_idle", func() {
		if n := presenter.StopIdle(cfg.Upkeep.PresenterIdle); n > 0 {
			log.Info().Int("stopped", n).Msg("Stopped idle payment codes")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Invalid upkeep schedule")
	}
	if memCache != nil {
		if err := upkeep.AddJob(cfg.Upkeep.Schedule, "idempotency_purge", func() {
			if n := memCache.Purge(); n > 0 {
				log.Debug().Int("purged", n).Msg("Purged expired settlement results")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("Invalid upkeep schedule")
		}
	}

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		Presenter:      presenter,
		ExchangeSvc:    exchanges,
		Identity:       identity,
		RateLimiter:    rateLimiter,
		DevLogin:       cfg.JWT.DevLogin,
		HealthCheckers: healthCheckers,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return presenter.Run(gctx)
	})
	g.Go(func() error {
		return upkeep.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exchanges.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server exited")
}

func walletDefaults(cfg config.WalletConfig) (service.AccountDefaults, error) {
	seed, err := domain.ParseAmount(cfg.SeedBalance)
	if err != nil || seed < 0 {
		return service.AccountDefaults{}, fmt.Errorf("wallet.seed_balance %q: must be a non-negative amount", cfg.SeedBalance)
	}
	fuel, ok := domain.ParseFuelType(cfg.DefaultFuel)
	if !ok {
		return service.AccountDefaults{}, fmt.Errorf("wallet.default_fuel %q is not a known fuel type", cfg.DefaultFuel)
	}
	vehicle, ok := domain.ParseVehicleType(cfg.DefaultVehicle)
	if !ok {
		return service.AccountDefaults{}, fmt.Errorf("wallet.default_vehicle %q is not a known vehicle type", cfg.DefaultVehicle)
	}
	return service.AccountDefaults{
		Seed:        seed,
		DisplayName: cfg.DefaultName,
		Fuel:        fuel,
		Vehicle:     vehicle,
	}, nil
}

// scannerFactory picks the capture source for each payee. Simulated mode
// scans the demo payer's live payment code after a fixed delay.
func scannerFactory(cfg config.ScannerConfig, presenter *service.TokenPresenter, log zerolog.Logger) service.ScannerFactory {
	if cfg.Mode != "simulated" {
		return func(string) ports.Scanner {
			return service.NewChannelScanner()
		}
	}
	if cfg.DemoPayer == "" {
		log.Fatal().Msg("scanner.demo_payer must be set in simulated mode")
	}
	return func(payeeID string) ports.Scanner {
		log.Debug().Str("payee_id", payeeID).Str("payer_id", cfg.DemoPayer).Msg("simulated scanner attached")
		return service.NewSimulatedScanner(cfg.SimulatedDelay, func(ctx context.Context) (string, error) {
			issued, err := presenter.Present(ctx, cfg.DemoPayer)
			if err != nil {
				return "", err
			}
			return issued.Encoded, nil
		})
	}
}

func ginMode(mode string) string {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.DebugMode
	}
}
