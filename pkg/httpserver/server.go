// Package httpserver exposes the operator control surface: bot
// lifecycle, configuration, positions, orders, the audit ledger and the
// push websocket, plus metrics and health probes.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aaronwins356/voltrader/internal/audit"
	"github.com/aaronwins356/voltrader/internal/engine"
	"github.com/aaronwins356/voltrader/pkg/healthprobe"
	"github.com/aaronwins356/voltrader/pkg/transport"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the HTTP control surface.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Engine        *engine.Engine
	Recorder      *audit.Recorder
	Bridge        *transport.WebsocketBridge
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := newAPIHandler(cfg.Engine, cfg.Recorder, cfg.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.handleGetConfig)
		r.Put("/config", h.handleUpdateConfig)

		r.Post("/bot/start", h.handleStart)
		r.Post("/bot/stop", h.handleStop)
		r.Post("/bot/kill", h.handleKill)
		r.Post("/bot/clear-kill", h.handleClearKill)
		r.Post("/bot/mode", h.handleSetMode)
		r.Post("/bot/dry-run", h.handleDryRun)
		r.Post("/bot/reset-event", h.handleResetEvent)

		r.Get("/status", h.handleStatus)
		r.Get("/scan", h.handleScan)
		r.Get("/account", h.handleAccount)
		r.Get("/activity", h.handleActivity)

		r.Get("/positions", h.handlePositions)
		r.Post("/positions/{marketID}/close", h.handleClosePosition)
		r.Post("/flatten", h.handleFlatten)

		r.Get("/orders", h.handleOrders)
		r.Post("/orders/{orderID}/cancel", h.handleCancelOrder)
		r.Get("/fills", h.handleFills)

		r.Get("/audit", h.handleAudit)
		r.Get("/audit/export", h.handleAuditExport)
	})

	if cfg.Bridge != nil {
		r.Get("/ws", cfg.Bridge.ServeHTTP)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
