package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/store"
)

// StoreHandle wraps the assignment store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Store.Close()
}

// ProvideStore opens the assignment store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	st, err := store.New(cfg.Storage.DataPath, log)
	if err != nil {
		return nil, err
	}

	log.Info("assignment store opened", "path", cfg.Storage.DataPath)

	return &StoreHandle{Store: st}, nil
}
