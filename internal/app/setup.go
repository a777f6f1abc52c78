package app

import (
	"context"
	"fmt"

	"github.com/aaronwins356/voltrader/internal/advisor"
	"github.com/aaronwins356/voltrader/internal/audit"
	"github.com/aaronwins356/voltrader/internal/circuitbreaker"
	"github.com/aaronwins356/voltrader/internal/engine"
	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/internal/orders"
	"github.com/aaronwins356/voltrader/internal/risk"
	"github.com/aaronwins356/voltrader/internal/scanner"
	"github.com/aaronwins356/voltrader/pkg/cache"
	"github.com/aaronwins356/voltrader/pkg/config"
	"github.com/aaronwins356/voltrader/pkg/healthprobe"
	"github.com/aaronwins356/voltrader/pkg/httpserver"
	"github.com/aaronwins356/voltrader/pkg/transport"
	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	dataClient, orderClient, err := setupExchangeClients(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup exchange clients: %w", err)
	}

	quoteService, err := setupQuoteService(cfg, logger, dataClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup quote service: %w", err)
	}

	storage, err := setupAuditStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup audit storage: %w", err)
	}
	recorder := audit.New(storage, logger)

	hub := transport.NewHub(&transport.Config{
		QueueSize: cfg.PushQueueSize,
		Logger:    logger,
	})

	tradingCfg := types.DefaultConfig()
	governor := risk.New(tradingCfg.RiskLimits, logger)
	orderManager := orders.New(&orders.Config{
		Client: orderClient,
		Tokens: governor,
		Logger: logger,
	})

	eng := engine.New(&engine.Config{
		Trading:       tradingCfg,
		ConfigPath:    cfg.ConfigPath,
		Quotes:        quoteService,
		Client:        orderClient,
		Scorer:        scanner.New(logger),
		Governor:      governor,
		Orders:        orderManager,
		Recorder:      recorder,
		Advisor:       advisor.NewHeuristic(),
		Publish:       publishBatch(hub),
		ActivityLimit: cfg.ActivityBuffer,
		Logger:        logger,
	})

	if err := eng.LoadPersistedConfig(); err != nil {
		logger.Warn("persisted-config-rejected", zap.Error(err))
	}
	if opts.AutoStart {
		eng.Start()
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Engine:        eng,
		Recorder:      recorder,
		Bridge:        transport.NewWebsocketBridge(hub, logger),
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		hub:           hub,
		quoteService:  quoteService,
		recorder:      recorder,
		engine:        eng,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Engine exposes the engine for one-shot CLI commands.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// setupExchangeClients picks the exchange collaborators. Market data
// comes from the REST API as soon as an access key is configured; order
// flow only leaves the paper broker when EXCHANGE_ENV is prod, so a demo
// key can feed real quotes into simulated fills.
func setupExchangeClients(cfg *config.Config, logger *zap.Logger) (data, order exchange.Client, err error) {
	paper := exchange.NewPaperBroker(logger)
	if cfg.ExchangeAPIKey == "" {
		return paper, paper, nil
	}

	rest, err := exchange.NewRESTClient(&exchange.RESTClientConfig{
		BaseURL:        cfg.ExchangeAPIBase,
		APIKey:         cfg.ExchangeAPIKey,
		PrivateKeyPath: cfg.ExchangePrivateKeyPath,
		Environment:    cfg.ExchangeEnv,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.ExchangeEnv == "prod" {
		logger.Info("exchange-order-flow-live", zap.String("api-base", cfg.ExchangeAPIBase))
		return rest, rest, nil
	}
	return rest, paper, nil
}

func setupQuoteService(cfg *config.Config, logger *zap.Logger, client exchange.Client) (*exchange.QuoteService, error) {
	metaCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create exchange breaker: %w", err)
	}

	return exchange.NewQuoteService(&exchange.QuoteServiceConfig{
		Client:      client,
		Cache:       metaCache,
		Breaker:     breaker,
		Retries:     cfg.QuoteRetryAttempts,
		Backoff:     cfg.QuoteRetryBackoff,
		MetadataTTL: cfg.MetadataTTL,
		Logger:      logger,
	})
}

func setupAuditStorage(cfg *config.Config, logger *zap.Logger) (audit.Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		return audit.NewPostgresStorage(&audit.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	case "console":
		return audit.NewConsoleStorage(logger), nil
	default:
		return audit.NewMemoryStorage(), nil
	}
}

// publishBatch fans one engine batch out as a batch event plus its
// individual kinds, so lightweight clients can subscribe to just one.
func publishBatch(hub *transport.Hub) func(engine.Batch) {
	return func(batch engine.Batch) {
		hub.Publish(transport.Event{Type: transport.EventBatch, Payload: batch})
		hub.Publish(transport.Event{Type: transport.EventStatus, Payload: batch.Status})
		hub.Publish(transport.Event{Type: transport.EventScan, Payload: batch.Scan})
		hub.Publish(transport.Event{Type: transport.EventPositions, Payload: batch.Positions})
		hub.Publish(transport.Event{Type: transport.EventActivity, Payload: batch.Activity})
	}
}
