// Package pipeline provides the CLI commands that run pipeline stages.
package pipeline

import (
	"context"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/pkg/logger"
)

// ConfigLoaderFunc loads and validates the configuration file at path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// EnvOpenerFunc opens the resources a stage needs.
type EnvOpenerFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config, needs env.Needs) (*env.Env, error)

// RunIDFunc returns the id grouping the reports of one invocation.
type RunIDFunc func() string

// Deps holds the injectable dependencies for pipeline commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: env.LoadConfig
	ConfigLoader ConfigLoaderFunc

	// EnvOpener opens the store and provider clients.
	// Default: env.Open
	EnvOpener EnvOpenerFunc

	// RunID names the run of every stage executed by one invocation.
	// Default: artifacts.NewRunID
	RunID RunIDFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = env.LoadConfig
	}
	if d.EnvOpener == nil {
		d.EnvOpener = env.Open
	}
	if d.RunID == nil {
		d.RunID = defaultRunID
	}
}
