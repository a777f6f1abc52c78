// Package app assembles the engine, exchange, audit and transport
// components and owns process lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/aaronwins356/voltrader/internal/audit"
	"github.com/aaronwins356/voltrader/internal/engine"
	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/pkg/config"
	"github.com/aaronwins356/voltrader/pkg/healthprobe"
	"github.com/aaronwins356/voltrader/pkg/httpserver"
	"github.com/aaronwins356/voltrader/pkg/transport"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	hub           *transport.Hub
	quoteService  *exchange.QuoteService
	recorder      *audit.Recorder
	engine        *engine.Engine
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// AutoStart begins scanning immediately instead of waiting for the
	// start control.
	AutoStart bool
}
