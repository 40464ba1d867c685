package api

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/provider/transport"
)

// Clients bundles the concrete adapters built by Dial.
type Clients struct {
	*Client

	SM *sportmonks.Client
	OA *oddsapi.Client
}

// DialOptions carry optional shared infrastructure.
type DialOptions struct {
	Registerer prometheus.Registerer
	Cache      transport.Cache
}

// Dial builds the provider adapters from configuration. A provider without a token is left
// unavailable rather than failing, so commands only fail when they need it.
func Dial(lggr logger.Logger, cfg *config.Config, reg *provider.Registry, opts DialOptions) *Clients {
	metrics := transport.NewMetrics(opts.Registerer)
	out := &Clients{Client: New(cfg.Provider(), nil, nil)}

	newTransport := func(name string) *transport.Client {
		topts := transport.DefaultOptions(name)
		topts.Timeout = cfg.HTTP.Timeout
		topts.MaxRetries = cfg.HTTP.MaxRetries
		topts.BaseDelay = cfg.HTTP.BaseDelay
		topts.MaxDelay = cfg.HTTP.MaxDelay
		topts.RequestsPerSecond = cfg.HTTP.RequestsPerSecond

		fns := []transport.Option{transport.WithMetrics(metrics)}
		if opts.Cache != nil {
			fns = append(fns, transport.WithCache(opts.Cache))
		}

		return transport.New(lggr.Named("http"), topts, fns...)
	}

	if tok, err := cfg.Token(sportmonks.Name); err != nil {
		out.missing[sportmonks.Name] = err
	} else {
		out.SM = sportmonks.New(lggr, newTransport(sportmonks.Name), reg, tok)
		out.sm = out.SM
	}

	if tok, err := cfg.Token(oddsapi.Name); err != nil {
		out.missing[oddsapi.Name] = err
	} else {
		out.OA = oddsapi.New(lggr, newTransport(oddsapi.Name), reg, tok)
		out.oa = out.OA
	}

	lggr.Debugw("Provider clients ready",
		"defaultProvider", cfg.Provider(),
		"sportmonks", out.SM != nil,
		"oddsapi", out.OA != nil,
	)

	return out
}

// SportMonksClient returns the concrete SportMonks adapter or an error naming the missing setting.
func (c *Clients) SportMonksClient() (*sportmonks.Client, error) {
	if c.SM == nil {
		return nil, fmt.Errorf("sportmonks: %w", c.unavailable(sportmonks.Name))
	}

	return c.SM, nil
}

// OddsAPIClient returns the concrete Odds API adapter or an error naming the missing setting.
func (c *Clients) OddsAPIClient() (*oddsapi.Client, error) {
	if c.OA == nil {
		return nil, fmt.Errorf("oddsapi: %w", c.unavailable(oddsapi.Name))
	}

	return c.OA, nil
}
