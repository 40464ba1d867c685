// Package report provides the CLI commands that summarise what the pipeline stored.
package report

import (
	"context"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/pkg/logger"
)

// ConfigLoaderFunc loads and validates the configuration file at path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// EnvOpenerFunc opens the store.
type EnvOpenerFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config, needs env.Needs) (*env.Env, error)

// Deps holds the injectable dependencies for report commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: env.LoadConfig
	ConfigLoader ConfigLoaderFunc

	// EnvOpener opens the store.
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
