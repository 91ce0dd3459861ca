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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	eventapp "github.com/dukapos/backend/internal/application/event"
	inventoryapp "github.com/dukapos/backend/internal/application/inventory"
	partnerapp "github.com/dukapos/backend/internal/application/partner"
	salesapp "github.com/dukapos/backend/internal/application/sales"
	transferapp "github.com/dukapos/backend/internal/application/transfer"
	"github.com/dukapos/backend/internal/infrastructure/auth"
	"github.com/dukapos/backend/internal/infrastructure/cache"
	"github.com/dukapos/backend/internal/infrastructure/config"
	"github.com/dukapos/backend/internal/infrastructure/event"
	"github.com/dukapos/backend/internal/infrastructure/logger"
	"github.com/dukapos/backend/internal/infrastructure/persistence"
	"github.com/dukapos/backend/internal/infrastructure/telemetry"
	"github.com/dukapos/backend/internal/interfaces/http/handler"
	"github.com/dukapos/backend/internal/interfaces/http/middleware"
	"github.com/dukapos/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			return fmt.Errorf("enable db tracing: %w", err)
		}
	}

	// Event pipeline
	serializer := event.NewDomainEventSerializer()
	publisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer bus.Stop(context.Background()) //nolint:errcheck

	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, log, cfg.App.Env != "production")
	if err != nil {
		return fmt.Errorf("init idempotency store: %w", err)
	}
	defer idempotencyStore.Close() //nolint:errcheck

	notifier := event.NewIdempotentHandler(event.NewLogNotifier(log), idempotencyStore, log)
	bus.Subscribe(notifier)

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
	}, log)
	if cfg.Event.ProcessorEnabled {
		processor.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := processor.Stop(stopCtx); err != nil {
				log.Warn("outbox processor stop failed", zap.Error(err))
			}
		}()
	}

	// Repositories and services
	txManager := persistence.NewTransactionManager(db.DB, publisher)
	branchRepo := persistence.NewGormBranchRepository(db.DB)
	stockRepo := persistence.NewGormStockRecordRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	transferRepo := persistence.NewGormTransferRepository(db.DB)

	ledgerService := inventoryapp.NewLedgerService(txManager.Inventory(), stockRepo, productRepo, log)
	ledgerService.SetMaxRetries(cfg.Inventory.AdjustRetries)
	checkoutService := salesapp.NewCheckoutService(txManager.Sales(), saleRepo, log)
	checkoutService.SetMaxRetries(cfg.Inventory.CheckoutRetries)
	creditService := salesapp.NewCreditService(txManager.Sales(), saleRepo, log)
	transferService := transferapp.NewTransferService(txManager.Transfers(), transferRepo, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)
	directoryService := partnerapp.NewDirectoryService(branchRepo, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return fmt.Errorf("setup validator: %w", err)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))

	handler.NewSystemHandler(db).RegisterRoutes(engine)

	verifier := auth.NewTokenVerifier(cfg.JWT)
	router.New(engine,
		router.WithGroupMiddleware(
			middleware.OperatorAuth(verifier),
			middleware.TraceAttributes(),
		),
	).Register(
		handler.NewBranchHandler(directoryService),
		handler.NewInventoryHandler(ledgerService),
		handler.NewSalesHandler(checkoutService, creditService),
		handler.NewTransferHandler(transferService),
		handler.NewOutboxHandler(outboxService),
	).Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
