// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is an optional hook invoked during WAFFLE's shutdown phase.
//
// This function is called after the HTTP server has stopped accepting
// new requests and existing requests have been drained (or the shutdown
// timeout has elapsed). The context has a timeout (default 10 seconds);
// if cleanup takes too long it will be cancelled.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}

	return nil
}
