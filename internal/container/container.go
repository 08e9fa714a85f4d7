// Package container is the composition root: every dependency is
// constructed here, in initialization order, and torn down in reverse.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/Haleralex/walletledger/internal/adapters/http"
	"github.com/Haleralex/walletledger/internal/adapters/http/handlers"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/application/usecases/admin"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/config"
	"github.com/Haleralex/walletledger/internal/infrastructure/messaging"
	natspub "github.com/Haleralex/walletledger/internal/infrastructure/messaging/nats"
	"github.com/Haleralex/walletledger/internal/infrastructure/persistence/postgres"
	"github.com/Haleralex/walletledger/internal/infrastructure/ratelimit"
	"github.com/Haleralex/walletledger/internal/pkg/logger"
	"github.com/Haleralex/walletledger/internal/pkg/tracing"
)

// Container wires the application together.
type Container struct {
	config *config.Config
	logger *slog.Logger

	tracingShutdown func(context.Context) error

	// Infrastructure
	pool        *pgxpool.Pool
	redisClient *redis.Client

	// Repositories
	walletRepo   ports.WalletRepository
	accountRepo  ports.AccountRepository
	journalRepo  ports.JournalRepository
	holdRepo     ports.HoldRepository
	intentRepo   ports.IntentRepository
	refundRepo   ports.RefundRepository
	keyRepo      ports.APIKeyRepository
	identityRepo ports.ExternalIdentityRepository
	idemRepo     ports.IdempotencyRepository
	outboxRepo   ports.OutboxRepository
	auditRepo    ports.AuditRepository

	uow   ports.UnitOfWork
	clock ports.Clock

	// Shared application services
	executor   *ledger.IdempotentExecutor
	authorizer *ledger.Authorizer
	resolver   *ledger.RecipientResolver
	expirer    *ledger.HoldExpirer

	// Background workers
	sweeper      *ledger.HoldSweeper
	outboxPoller *messaging.OutboxPoller
	publisher    *natspub.Publisher

	rateLimiter ports.RateLimiter

	// Use cases
	transferUC         *ledger.TransferUseCase
	depositUC          *ledger.DepositUseCase
	createHoldUC       *ledger.CreateHoldUseCase
	captureHoldUC      *ledger.CaptureHoldUseCase
	releaseHoldUC      *ledger.ReleaseHoldUseCase
	getHoldUC          *ledger.GetHoldUseCase
	createIntentUC     *ledger.CreateIntentUseCase
	payIntentUC        *ledger.PayIntentUseCase
	cancelIntentUC     *ledger.CancelIntentUseCase
	getIntentUC        *ledger.GetIntentUseCase
	refundUC           *ledger.RefundUseCase
	getBalanceUC       *ledger.GetBalanceUseCase
	listTransactionsUC *ledger.ListTransactionsUseCase
	resolveRecipientUC *ledger.ResolveRecipientUseCase

	createWalletUC    *admin.CreateWalletUseCase
	issueAPIKeyUC     *admin.IssueAPIKeyUseCase
	revokeAPIKeyUC    *admin.RevokeAPIKeyUseCase
	setWalletStatusUC *admin.SetWalletStatusUseCase

	// HTTP
	httpServer *httpapi.Server

	// Background lifecycle
	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
}

// New creates an uninitialized container.
func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize builds every dependency. Call Shutdown to release them.
func (c *Container) Initialize(ctx context.Context) error {
	c.initLogger()
	c.logger.Info("initializing container",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment))

	if err := c.initTracing(ctx); err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	c.initRepositories()
	if err := c.initMessaging(); err != nil {
		return fmt.Errorf("initializing messaging: %w", err)
	}
	c.initRateLimiter()
	c.initUseCases()
	c.initHTTPServer()

	c.logger.Info("container initialized")
	return nil
}

func (c *Container) initLogger() {
	c.logger = logger.New(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		AddSource: c.config.Log.AddSource,
	})
	slog.SetDefault(c.logger)
}

func (c *Container) initTracing(ctx context.Context) error {
	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     c.config.Tracing.Enabled,
		ServiceName: c.config.App.Name,
		Endpoint:    c.config.Tracing.Endpoint,
		SampleRatio: c.config.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	c.tracingShutdown = shutdown
	if c.config.Tracing.Enabled {
		c.logger.Info("tracing enabled", slog.String("endpoint", c.config.Tracing.Endpoint))
	}
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		Database:        c.config.Database.Database,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}
	c.pool = pool
	c.logger.Info("database connected",
		slog.String("host", c.config.Database.Host),
		slog.String("database", c.config.Database.Database))
	return nil
}

func (c *Container) initRepositories() {
	c.walletRepo = postgres.NewWalletRepository(c.pool)
	c.accountRepo = postgres.NewAccountRepository(c.pool)
	c.journalRepo = postgres.NewJournalRepository(c.pool)
	c.holdRepo = postgres.NewHoldRepository(c.pool)
	c.intentRepo = postgres.NewIntentRepository(c.pool)
	c.refundRepo = postgres.NewRefundRepository(c.pool)
	c.keyRepo = postgres.NewAPIKeyRepository(c.pool)
	c.identityRepo = postgres.NewExternalIdentityRepository(c.pool)
	c.idemRepo = postgres.NewIdempotencyRepository(c.pool)
	c.outboxRepo = postgres.NewOutboxRepository(c.pool)
	c.auditRepo = postgres.NewAuditRepository(c.pool)
	c.uow = postgres.NewUnitOfWork(c.pool)
	c.clock = ports.SystemClock{}
	c.logger.Info("repositories initialized")
}

func (c *Container) initMessaging() error {
	if !c.config.NATS.Enabled {
		c.logger.Info("event publishing disabled, outbox will accumulate")
		return nil
	}

	publisher, err := natspub.NewPublisher(natspub.Config{
		URL:           c.config.NATS.URL,
		Name:          c.config.App.Name,
		MaxReconnects: -1,
		ReconnectWait: natspub.DefaultConfig().ReconnectWait,
	})
	if err != nil {
		return err
	}
	c.publisher = publisher
	c.outboxPoller = messaging.NewOutboxPoller(
		c.uow, c.outboxRepo, publisher,
		c.config.Outbox.Interval, c.config.Outbox.Batch, c.logger,
	)
	c.logger.Info("nats connected", slog.String("url", c.config.NATS.URL))
	return nil
}

func (c *Container) initRateLimiter() {
	if !c.config.RateLimit.Enabled {
		return
	}
	if c.config.Redis.Enabled {
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.Redis.Addr,
			Password: c.config.Redis.Password,
			DB:       c.config.Redis.DB,
		})
		c.rateLimiter = ratelimit.NewRedisLimiter(
			c.redisClient, c.config.RateLimit.Limit, c.config.RateLimit.Window)
		c.logger.Info("rate limiting via redis", slog.String("addr", c.config.Redis.Addr))
		return
	}
	c.rateLimiter = ratelimit.NewMemoryLimiter(
		c.config.RateLimit.Limit, c.config.RateLimit.Window)
	c.logger.Info("rate limiting in memory",
		slog.Int("limit", c.config.RateLimit.Limit),
		slog.Duration("window", c.config.RateLimit.Window))
}

func (c *Container) initUseCases() {
	c.executor = ledger.NewIdempotentExecutor(c.uow, c.idemRepo, c.logger)
	c.authorizer = ledger.NewAuthorizer(c.journalRepo, c.clock)
	c.resolver = ledger.NewRecipientResolver(c.walletRepo, c.identityRepo)
	c.expirer = ledger.NewHoldExpirer(
		c.uow, c.holdRepo, c.accountRepo, c.journalRepo, c.outboxRepo, c.clock, c.logger)

	c.transferUC = ledger.NewTransferUseCase(
		c.executor, c.resolver, c.authorizer,
		c.walletRepo, c.accountRepo, c.journalRepo, c.outboxRepo, c.logger)
	c.depositUC = ledger.NewDepositUseCase(
		c.executor, c.resolver, c.accountRepo, c.journalRepo, c.outboxRepo, c.logger)

	c.createHoldUC = ledger.NewCreateHoldUseCase(
		c.executor, c.resolver, c.authorizer,
		c.walletRepo, c.accountRepo, c.journalRepo, c.holdRepo, c.outboxRepo, c.clock, c.logger)
	c.captureHoldUC = ledger.NewCaptureHoldUseCase(
		c.executor, c.expirer,
		c.walletRepo, c.accountRepo, c.journalRepo, c.holdRepo, c.outboxRepo, c.clock, c.logger)
	c.releaseHoldUC = ledger.NewReleaseHoldUseCase(
		c.executor, c.expirer,
		c.accountRepo, c.journalRepo, c.holdRepo, c.outboxRepo, c.clock, c.logger)
	c.getHoldUC = ledger.NewGetHoldUseCase(c.expirer, c.holdRepo, c.accountRepo)

	c.createIntentUC = ledger.NewCreateIntentUseCase(
		c.executor, c.walletRepo, c.accountRepo, c.intentRepo, c.outboxRepo, c.clock, c.logger)
	c.payIntentUC = ledger.NewPayIntentUseCase(
		c.executor, c.authorizer, c.uow,
		c.walletRepo, c.accountRepo, c.journalRepo, c.intentRepo, c.outboxRepo, c.clock, c.logger)
	c.cancelIntentUC = ledger.NewCancelIntentUseCase(
		c.executor, c.accountRepo, c.intentRepo, c.clock, c.logger)
	c.getIntentUC = ledger.NewGetIntentUseCase(c.uow, c.intentRepo, c.clock)

	c.refundUC = ledger.NewRefundUseCase(
		c.executor, c.walletRepo, c.accountRepo, c.journalRepo, c.refundRepo, c.outboxRepo, c.logger)

	c.getBalanceUC = ledger.NewGetBalanceUseCase(c.accountRepo)
	c.listTransactionsUC = ledger.NewListTransactionsUseCase(c.accountRepo, c.journalRepo)
	c.resolveRecipientUC = ledger.NewResolveRecipientUseCase(c.resolver)

	c.createWalletUC = admin.NewCreateWalletUseCase(
		c.uow, c.walletRepo, c.accountRepo, c.identityRepo, c.outboxRepo, c.logger)
	c.issueAPIKeyUC = admin.NewIssueAPIKeyUseCase(c.uow, c.walletRepo, c.keyRepo, c.logger)
	c.revokeAPIKeyUC = admin.NewRevokeAPIKeyUseCase(c.uow, c.keyRepo, c.clock, c.logger)
	c.setWalletStatusUC = admin.NewSetWalletStatusUseCase(c.uow, c.walletRepo, c.logger)

	c.sweeper = ledger.NewHoldSweeper(
		c.holdRepo, c.expirer, c.clock,
		c.config.Sweeper.Interval, c.config.Sweeper.Batch, c.logger)

	c.logger.Info("use cases initialized")
}

func (c *Container) initHTTPServer() {
	ledgerHandlers := &httpapi.LedgerHandlers{
		Wallet:   handlers.NewWalletHandler(c.getBalanceUC, c.listTransactionsUC, c.resolveRecipientUC),
		Transfer: handlers.NewTransferHandler(c.transferUC, c.depositUC),
		Hold:     handlers.NewHoldHandler(c.createHoldUC, c.captureHoldUC, c.releaseHoldUC, c.getHoldUC),
		Intent:   handlers.NewIntentHandler(c.createIntentUC, c.payIntentUC, c.cancelIntentUC, c.getIntentUC),
		Refund:   handlers.NewRefundHandler(c.refundUC),
	}
	adminHandler := handlers.NewAdminHandler(
		c.createWalletUC, c.issueAPIKeyUC, c.revokeAPIKeyUC, c.setWalletStatusUC)

	router := httpapi.NewRouter(&httpapi.RouterConfig{
		Logger:         c.logger,
		Version:        c.config.App.Version,
		Environment:    c.config.App.Environment,
		AdminJWTSecret: c.config.Auth.AdminJWTSecret,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		RateLimiter:    c.rateLimiter,
		KeyRepo:        c.keyRepo,
		AuditRepo:      c.auditRepo,
		TracingEnabled: c.config.Tracing.Enabled,
		HealthCheckers: c.healthCheckers(),
	}, ledgerHandlers, adminHandler)

	c.httpServer = httpapi.NewServer(&httpapi.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            strconv.Itoa(c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}, router)
}

func (c *Container) healthCheckers() []handlers.HealthChecker {
	checkers := []handlers.HealthChecker{
		handlers.CheckerFunc{
			CheckName: "postgres",
			Fn: func(ctx context.Context) error {
				return postgres.HealthCheck(ctx, c.pool)
			},
		},
	}
	if c.publisher != nil {
		checkers = append(checkers, handlers.CheckerFunc{
			CheckName: "nats",
			Fn: func(context.Context) error {
				return c.publisher.Healthy()
			},
		})
	}
	if c.redisClient != nil {
		checkers = append(checkers, handlers.CheckerFunc{
			CheckName: "redis",
			Fn: func(ctx context.Context) error {
				return c.redisClient.Ping(ctx).Err()
			},
		})
	}
	return checkers
}

// Start launches the background workers and the HTTP server. It blocks
// until the server stops.
func (c *Container) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	c.cancelWorkers = cancel

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		c.sweeper.Run(workerCtx)
	}()

	if c.outboxPoller != nil {
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			c.outboxPoller.Run(workerCtx)
		}()
	}

	c.logger.Info("http server starting",
		slog.String("address", c.config.Server.Host+":"+strconv.Itoa(c.config.Server.Port)))
	return c.httpServer.Start()
}

// Shutdown stops the server, the workers, and closes every connection, in
// reverse initialization order.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("shutting down")

	var firstErr error
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
			c.logger.Error("http shutdown failed", slog.String("error", err.Error()))
		}
	}

	if c.cancelWorkers != nil {
		c.cancelWorkers()
		c.workers.Wait()
	}

	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.tracingShutdown != nil {
		if err := c.tracingShutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}

	c.logger.Info("shutdown complete")
	return firstErr
}
