package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stop requests a shutdown. Run observes the cancellation and performs
// the orderly teardown.
func (e *Engine) Stop() {
	e.cancel()
}

// Shutdown tears the engine down in dependency order. In-flight
// executions finish inside the executor before its semaphore drains;
// loops observe the cancelled context at their next tick.
func (e *Engine) Shutdown() error {
	e.logger.Info("engine-shutting-down")

	e.running.Store(false)
	e.health.SetReady(false)

	e.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := e.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		e.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	err = e.wsManager.Close()
	if err != nil {
		e.logger.Error("websocket-close-error", zap.Error(err))
	}

	err = e.books.Close()
	if err != nil {
		e.logger.Error("book-store-close-error", zap.Error(err))
	}

	err = e.storage.Close()
	if err != nil {
		e.logger.Error("storage-close-error", zap.Error(err))
	}

	e.marketCache.Close()

	e.wg.Wait()

	e.logger.Info("engine-shutdown-complete")

	return nil
}
