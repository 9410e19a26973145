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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerbot/internal/adapter/ai/ollama"
	httpAdapter "github.com/iho/ledgerbot/internal/adapter/http"
	"github.com/iho/ledgerbot/internal/adapter/http/handler"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/ledgerbot/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledgerbot/internal/adapter/repository/redis"
	"github.com/iho/ledgerbot/internal/infrastructure/auth"
	"github.com/iho/ledgerbot/internal/infrastructure/config"
	"github.com/iho/ledgerbot/internal/infrastructure/eventpublisher"
	"github.com/iho/ledgerbot/internal/infrastructure/logger"
	"github.com/iho/ledgerbot/internal/infrastructure/metrics"
	"github.com/iho/ledgerbot/internal/infrastructure/postgres"
	"github.com/iho/ledgerbot/internal/infrastructure/redis"
	"github.com/iho/ledgerbot/internal/usecase"
)

const (
	lockTTL          = 10 * time.Second
	lockPoll         = 25 * time.Millisecond
	limiterIdle      = 10 * time.Minute
	limiterSweep     = time.Minute
	readinessTimeout = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer, promhttp.Handler())
	if err != nil {
		return err
	}
	defer a.close()

	go a.limiter.RunCleanup(ctx, limiterSweep, limiterIdle)
	go func() {
		if err := a.publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the fully wired server.
type app struct {
	handler   http.Handler
	publisher *eventpublisher.EventPublisher
	limiter   *middleware.RateLimiter
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage is one backend's set of repositories.
type storage struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	entries   usecase.EntryRepository
	customers usecase.CustomerRepository
	outbox    usecase.OutboxRepository
	idGen     usecase.IDGenerator
	retrier   usecase.Retrier
	checkers  []handler.Checker
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer, metricsHandler http.Handler) (*app, error) {
	a := &app{}
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, log, a)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		cache       usecase.Cache            = memory.NewCache()
		idempotency usecase.IdempotencyStore = memory.NewIdempotencyStore()
		locker      usecase.AccountLocker
	)

	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL, redis.Options{PoolSize: cfg.RedisPool})
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(client, "ledgerbot:ai:")
		idempotency = redisRepo.NewIdempotencyStore(client)
		if cfg.LockBackend == config.LockRedis {
			locker = redisRepo.NewLocker(client, lockTTL, lockPoll)
		}
		store.checkers = append(store.checkers, redisChecker(client))
	}

	accountUC := usecase.NewAccountUseCase(store.accounts, store.entries, store.customers)
	transferUC := usecase.NewTransferUseCase(
		store.txManager, store.accounts, store.entries, store.outbox,
		store.idGen, locker, store.retrier,
	).WithMetrics(m)

	assistantClient := ollama.New(ollama.Config{
		Host:            cfg.OllamaHost,
		Model:           cfg.OllamaModel,
		DialTimeout:     cfg.OllamaDialTimeout,
		ResponseTimeout: cfg.OllamaResponseTimeout,
		CacheTTL:        cfg.AICacheTTL,
		Breaker: ollama.BreakerConfig{
			ConsecutiveFailures: cfg.BreakerFailures,
			Timeout:             cfg.BreakerOpenTimeout,
		},
	}, cache, m, log)

	chatUC := usecase.NewChatUseCase(accountUC, transferUC, assistantClient, m, log)

	publisher, err := newOutboxPublisher(cfg, log, a)
	if err != nil {
		a.close()
		return nil, err
	}
	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  publisher,
		Recorder:   m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnLimit(m.RateLimitHits.Inc)

	routerCfg := httpAdapter.RouterConfig{
		ChatHandler:      handler.NewChatHandler(chatUC),
		AccountHandler:   handler.NewAccountHandler(accountUC),
		TransferHandler:  handler.NewTransferHandler(transferUC),
		HealthHandler:    handler.NewHealthHandler(store.checkers...),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.limiter,
		Metrics:          m,
		MetricsHandler:   metricsHandler,
		Logger:           log,
	}
	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	a.handler = httpAdapter.NewRouter(routerCfg)
	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, a *app) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		if err := memory.SeedDemo(store, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		log.Warn().Msg("using in-memory storage with demo accounts")

		return &storage{
			txManager: memory.NewTxManager(store),
			accounts:  memory.NewAccountRepository(store),
			entries:   memory.NewEntryRepository(store),
			customers: memory.NewCustomerRepository(store),
			outbox:    memory.NewOutboxRepository(store),
			idGen:     postgresRepo.NewULIDGenerator(),
		}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       int(cfg.DatabaseMaxConns),
		MinConns:       int(cfg.DatabaseMinConns),
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	log.Info().Msg("connected to postgres")

	return &storage{
		txManager: postgresRepo.NewTxManager(pool),
		accounts:  postgresRepo.NewAccountRepository(pool),
		entries:   postgresRepo.NewEntryRepository(pool),
		customers: postgresRepo.NewCustomerRepository(pool),
		outbox:    postgresRepo.NewOutboxRepository(pool),
		idGen:     postgresRepo.NewULIDGenerator(),
		retrier:   postgresRepo.NewRetrier(log),
		checkers:  []handler.Checker{postgresChecker(pool)},
	}, nil
}

func newOutboxPublisher(cfg *config.Config, log zerolog.Logger, a *app) (eventpublisher.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(log), nil
	}

	kp := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	a.closers = append(a.closers, func() {
		if err := kp.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka writer")
		}
	})
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing outbox to kafka")
	return kp, nil
}

func postgresChecker(pool *pgxpool.Pool) handler.Checker {
	return handler.Checker{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
			defer cancel()
			return pool.Ping(ctx)
		},
	}
}

func redisChecker(client *goredis.Client) handler.Checker {
	return handler.Checker{
		Name: "redis",
		Check: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
			defer cancel()
			return client.Ping(ctx).Err()
		},
	}
}
