package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown tears down the daemon in reverse dependency order: stop serving
// HTTP, then close storage, then cancel the loop context and wait for the
// control-plane watcher and HTTP server goroutines to exit.
func (a *App) Shutdown() error {
	a.deps.Logger.Info("daemon-shutting-down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.deps.Logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	if err := a.deps.Store.Close(); err != nil {
		a.deps.Logger.Error("storage-close-error", zap.Error(err))
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.deps.Logger.Info("daemon-shutdown-complete")
	return nil
}
