// Package di provides dependency injection configuration for the handlesync server.
package di

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/commands"
	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/di/providers"
	"github.com/handlesync/handlesync-server/internal/policy"
	"github.com/handlesync/handlesync-server/internal/ratelimit"
	"github.com/handlesync/handlesync-server/internal/reconcile"
	"github.com/handlesync/handlesync-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)

	// Directory and engine
	do.Provide(injector, providers.ProvideDirectory)
	do.Provide(injector, providers.ProvidePacer)
	do.Provide(injector, providers.ProvideEngine)
	do.Provide(injector, providers.ProvideGuard)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideNotifySink)
	do.Provide(injector, providers.ProvideCommandHandler)

	// Workers
	do.Provide(injector, providers.ProvideSweeper)

	// Ops surface
	do.Provide(injector, providers.ProvideOpsServer)

	return injector
}

// Bootstrap triggers lazy initialization of every service, starting
// the sweeper and the ops listener as a side effect.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*slog.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*ratelimit.Pacer](injector)
	_ = do.MustInvoke[*reconcile.Engine](injector)
	_ = do.MustInvoke[*policy.Guard](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*commands.Handler](injector)
	_ = do.MustInvoke[*providers.SweeperHandle](injector)
	_ = do.MustInvoke[*providers.OpsServerHandle](injector)

	return nil
}
