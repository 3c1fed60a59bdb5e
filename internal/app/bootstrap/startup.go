// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratafolio/internal/app/resources"
	"github.com/dalemusser/stratafolio/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are
// complete, but before the HTTP handler is built and requests are served.
//
// This is the place for one-time initialization that depends on having
// live database connections and fully loaded configuration. Returning a
// non-nil error aborts startup and prevents the server from starting.
//
// The context will be cancelled if the process is asked to shut down
// while Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied from environment", zap.Int("count", n))
	}

	// Superuser seeding happens in EnsureSchema via seeding.SeedAll.

	return nil
}
