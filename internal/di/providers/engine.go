package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/commands"
	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/directory/memorydir"
	"github.com/handlesync/handlesync-server/internal/notify"
	"github.com/handlesync/handlesync-server/internal/policy"
	"github.com/handlesync/handlesync-server/internal/ratelimit"
	"github.com/handlesync/handlesync-server/internal/reconcile"
	"github.com/handlesync/handlesync-server/internal/validation"
)

// ProvideDirectory provides the remote directory client. The default
// is the in-process implementation; a platform adapter registers its
// own Directory ahead of this provider when one is configured.
func ProvideDirectory(i do.Injector) (directory.Directory, error) {
	log := do.MustInvoke[*slog.Logger](i)
	log.Warn("no platform directory configured, using the in-process directory")
	return memorydir.New(), nil
}

// ProvidePacer provides the per-guild write pacer.
func ProvidePacer(i do.Injector) (*ratelimit.Pacer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.Directory.PaceRPS, cfg.Directory.PaceBurst), nil
}

// ProvideEngine provides the reconciliation engine.
func ProvideEngine(i do.Injector) (*reconcile.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	dir := do.MustInvoke[directory.Directory](i)
	pacer := do.MustInvoke[*ratelimit.Pacer](i)
	log := do.MustInvoke[*slog.Logger](i)

	return reconcile.NewEngine(storeHandle.Store, dir, pacer, cfg.Directory.RequestTimeout, log), nil
}

// ProvideGuard provides the policy guard.
func ProvideGuard(i do.Injector) (*policy.Guard, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return policy.NewGuard(storeHandle.Store), nil
}

// ProvideValidator provides the input validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideNotifySink provides the admin notification sink. Without a
// platform messenger there is nowhere to deliver, so the default is
// the no-op sink; adapters override with notify.NewRouter.
func ProvideNotifySink(_ do.Injector) (notify.Sink, error) {
	return notify.NewNoopSink(), nil
}

// ProvideCommandHandler provides the chat command handler.
func ProvideCommandHandler(i do.Injector) (*commands.Handler, error) {
	engine := do.MustInvoke[*reconcile.Engine](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	guard := do.MustInvoke[*policy.Guard](i)
	validate := do.MustInvoke[*validation.Validator](i)
	sink := do.MustInvoke[notify.Sink](i)
	log := do.MustInvoke[*slog.Logger](i)

	return commands.NewHandler(engine, storeHandle.Store, guard, validate, sink, log), nil
}
