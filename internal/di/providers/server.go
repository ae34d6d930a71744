package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/ops"
)

const shutdownTimeout = 10 * time.Second

// OpsServerHandle wraps the ops http.Server with Shutdownable.
type OpsServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *OpsServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideOpsServer provides the operational HTTP listener. The
// listener goroutine starts here; a disabled config yields an empty
// handle so shutdown stays uniform.
func ProvideOpsServer(i do.Injector) (*OpsServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if !cfg.Ops.Enabled {
		log.Info("ops endpoint disabled")
		return &OpsServerHandle{}, nil
	}

	sweeperHandle := do.MustInvoke[*SweeperHandle](i)
	srv := &http.Server{
		Addr:         ":" + cfg.Ops.Port,
		Handler:      ops.NewServer(sweeperHandle.Sweeper, log),
		ReadTimeout:  cfg.Ops.ReadTimeout,
		WriteTimeout: cfg.Ops.WriteTimeout,
		IdleTimeout:  cfg.Ops.IdleTimeout,
	}

	go func() {
		log.Info("ops endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops endpoint failed", "error", err)
		}
	}()

	return &OpsServerHandle{Server: srv}, nil
}
