package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/handlesync/handlesync-server/internal/config"
	"github.com/handlesync/handlesync-server/internal/logger"
)

// ProvideConfig loads application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the application logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}
