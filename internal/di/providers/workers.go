package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/reconcile"
)

// SweeperHandle wraps the background sweeper with shutdown capability.
type SweeperHandle struct {
	*reconcile.Sweeper
}

// Shutdown implements do.Shutdownable.
func (h *SweeperHandle) Shutdown() error {
	h.Sweeper.Stop()
	return nil
}

// ProvideSweeper provides the periodic repair sweeper. It is started
// here when enabled, so invoking it from Bootstrap kicks off the loop.
func ProvideSweeper(i do.Injector) (*SweeperHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	engine := do.MustInvoke[*reconcile.Engine](i)
	log := do.MustInvoke[*slog.Logger](i)

	sweeper := reconcile.NewSweeper(engine, cfg.Sweep.Interval, log)

	if cfg.Sweep.Enabled {
		sweeper.Start()
		log.Info("repair sweeper started", "interval", cfg.Sweep.Interval)
	} else {
		log.Info("repair sweeper disabled")
	}

	return &SweeperHandle{Sweeper: sweeper}, nil
}
