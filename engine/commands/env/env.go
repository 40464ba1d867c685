// Package env opens the resources a sportdb command runs against: the configuration, the
// Postgres store, the provider clients and the artifacts directory.
package env

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inattention/sportdata/api"
	"github.com/inattention/sportdata/artifacts"
	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/cache"
	"github.com/inattention/sportdata/stages"
	"github.com/inattention/sportdata/store"
)

// Needs selects which resources Open sets up.
type Needs struct {
	Store   bool
	Clients bool
}

// Env holds the opened resources. Fields not requested through Needs are nil.
type Env struct {
	Config    *config.Config
	Store     *store.Store
	Clients   *api.Clients
	Artifacts *artifacts.Dir
	// Metrics collects the stage and transport collectors of this invocation.
	Metrics *prometheus.Registry

	closers []func() error
}

// LoadConfig reads path (env vars override its values) and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Open sets up the resources listed in needs. The caller must Close the returned Env.
func Open(ctx context.Context, lggr logger.Logger, cfg *config.Config, needs Needs) (*Env, error) {
	e := &Env{
		Config:  cfg,
		Metrics: prometheus.NewRegistry(),
	}
	if cfg.Paths.ArtifactsDir != "" {
		e.Artifacts = artifacts.New(cfg.Paths.ArtifactsDir)
	}

	if needs.Store {
		dsn, err := cfg.DatabaseURL()
		if err != nil {
			return nil, err
		}
		s, err := store.Open(ctx, lggr, dsn)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, s.Close)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = e.Close()
			return nil, err
		}
		e.Store = s
	}

	if needs.Clients {
		reg, err := provider.Load(cfg.Paths.Providers)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		opts := api.DialOptions{Registerer: e.Metrics}
		if cfg.Cache.Path != "" {
			c, err := cache.Open(cfg.Cache.Path)
			if err != nil {
				_ = e.Close()
				return nil, err
			}
			e.closers = append(e.closers, c.Close)
			opts.Cache = c
		}
		e.Clients = api.Dial(lggr, cfg, reg, opts)
	}

	return e, nil
}

// StageDeps builds the stage dependencies. Clients that are not configured are left nil; stages
// needing them fail with a message naming the missing token.
func (e *Env) StageDeps() *stages.Deps {
	d := &stages.Deps{
		Store:       e.Store,
		Provider:    e.Config.Provider(),
		Concurrency: e.Config.HTTP.Concurrency,
	}
	if e.Clients != nil {
		if sm, err := e.Clients.SportMonksClient(); err == nil {
			d.SportMonks = sm
		}
		if oa, err := e.Clients.OddsAPIClient(); err == nil {
			d.OddsAPI = oa
		}
	}

	return d
}

// WriteMetrics writes the collected metrics in the node exporter textfile format. An empty path
// is a no-op.
func (e *Env) WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, e.Metrics); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}

	return nil
}

// Close releases the opened resources in reverse order.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil

	return errors.Join(errs...)
}
