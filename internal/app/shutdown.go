package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Signal the engine loop to stop.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.hub.Close()

	err = a.engine.Close()
	if err != nil {
		a.logger.Error("engine-close-error", zap.Error(err))
	}

	a.quoteService.Close()

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
