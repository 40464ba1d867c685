// Package fetch provides CLI commands that call a provider once and print the result, for
// inspecting payloads while debugging a stage.
package fetch

import (
	"context"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/pkg/logger"
)

// ConfigLoaderFunc loads and validates the configuration file at path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// EnvOpenerFunc opens the provider clients.
type EnvOpenerFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config, needs env.Needs) (*env.Env, error)

// Deps holds the injectable dependencies for fetch commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: env.LoadConfig
	ConfigLoader ConfigLoaderFunc

	// EnvOpener opens the provider clients.
	// Default: env.Open
	EnvOpener EnvOpenerFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = env.LoadConfig
	}
	if d.EnvOpener == nil {
		d.EnvOpener = env.Open
	}
}
