// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"
	"time"

	oauthstate "github.com/dalemusser/tasktracker/internal/app/store/oauthstate"
	"github.com/dalemusser/tasktracker/internal/app/resources"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const stateCleanupInterval = 10 * time.Minute

// background owns the goroutines started in Startup.
type background struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	cleanup *workers.StateCleanup
	wg      sync.WaitGroup
}

func (b *background) stop() {
	if b == nil {
		return
	}
	b.mu.Lock()
	cancel, cleanup := b.cancel, b.cleanup
	b.cancel, b.cleanup = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cleanup != nil {
		cleanup.Stop()
	}
	b.wg.Wait()
}

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts configured from environment",
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long))
	}

	resources.LoadSharedTemplates()

	// Prime the catalog snapshot for stream subscribers.
	rctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	if err := deps.CatalogHub.Refresh(rctx); err != nil {
		logger.Warn("initial catalog load failed; streams will retry on connect", zap.Error(err))
	}
	cancel()

	if deps.bg == nil {
		return nil
	}
	bgctx, bgcancel := context.WithCancel(context.Background())

	deps.bg.mu.Lock()
	deps.bg.cancel = bgcancel
	deps.bg.cleanup = workers.NewStateCleanup(oauthstate.New(deps.MongoDatabase), logger, stateCleanupInterval)
	deps.bg.cleanup.Start()
	deps.bg.mu.Unlock()

	if deps.Redis != nil {
		deps.bg.wg.Add(1)
		go func() {
			defer deps.bg.wg.Done()
			deps.Redis.Run(bgctx, func(ctx context.Context) {
				_ = deps.CatalogHub.Refresh(ctx)
			})
		}()
	}

	return nil
}
