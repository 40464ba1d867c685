// Package provider resolves provider endpoints and odds market rules from providers_config.yaml.
package provider

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrProviderNotFound is returned when no entry matches the requested provider name.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrEndpointNotFound is returned when the provider has no such endpoint.
	ErrEndpointNotFound = errors.New("endpoint not found")
	// ErrMarketNotFound is returned when the provider has no odds market mapping of that name.
	ErrMarketNotFound = errors.New("market not configured")
	// ErrInvalidProvider is returned when a provider entry is missing base_url or endpoints.
	ErrInvalidProvider = errors.New("invalid provider entry")
)

// MarketRule selects odds of one canonical market: the value at Field must equal one of Equals.
type MarketRule struct {
	Field  string   `yaml:"field" validate:"required"`
	Equals []string `yaml:"equals" validate:"required"`
}

// Entry is one element of the top-level providers list.
type Entry struct {
	Name      string                `yaml:"name"`
	BaseURL   string                `yaml:"base_url" validate:"required,url"`
	Endpoints map[string]string     `yaml:"endpoints" validate:"required"`
	Markets   map[string]MarketRule `yaml:"odds_market_mapping"`
}

type file struct {
	Providers []Entry `yaml:"providers"`
}

// Registry holds the parsed providers file.
type Registry struct {
	path      string
	entries   []Entry
	validator *validator.Validate
}

// Load reads and parses a providers file.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers config: %w", err)
	}

	r, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, path)
	}
	r.path = path

	return r, nil
}

// Parse parses providers YAML.
func Parse(b []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil || f.Providers == nil {
		return nil, errors.New("invalid config format: expected top-level 'providers' list")
	}

	return &Registry{entries: f.Providers, validator: validator.New()}, nil
}

// Names lists the configured provider names, lower-cased.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, normalize(e.Name))
	}

	return out
}

// Entry returns the provider entry matching name, compared trimmed and case-insensitively.
func (r *Registry) Entry(name string) (Entry, error) {
	name = normalize(name)
	for _, e := range r.entries {
		if normalize(e.Name) == name {
			return e, nil
		}
	}

	return Entry{}, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
}

// BaseURL returns the validated base URL of provider without a trailing slash.
func (r *Registry) BaseURL(provider string) (string, error) {
	e, err := r.validEntry(provider)
	if err != nil {
		return "", err
	}

	return strings.TrimRight(strings.TrimSpace(e.BaseURL), "/"), nil
}

// URL joins the provider base URL with the endpoint path and substitutes {placeholders} from args.
// Values in args are inserted verbatim; callers escape them when needed.
func (r *Registry) URL(provider, endpoint string, args map[string]string) (string, error) {
	provider = normalize(provider)
	endpoint = strings.TrimSpace(endpoint)
	if provider == "" {
		return "", errors.New("provider must be a non-empty string")
	}
	if endpoint == "" {
		return "", errors.New("endpoint must be a non-empty string")
	}

	e, err := r.validEntry(provider)
	if err != nil {
		return "", err
	}

	path := strings.TrimSpace(e.Endpoints[endpoint])
	if path == "" {
		return "", fmt.Errorf("%w: %q for provider %q", ErrEndpointNotFound, endpoint, provider)
	}

	u := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/") + "/" + strings.TrimLeft(path, "/")
	for k, v := range args {
		u = strings.ReplaceAll(u, "{"+k+"}", v)
	}

	return u, nil
}

// Market returns the odds market rule named market for provider.
func (r *Registry) Market(provider, market string) (MarketRule, error) {
	provider = normalize(provider)
	market = normalize(market)

	e, err := r.Entry(provider)
	if err != nil {
		return MarketRule{}, err
	}

	rule, ok := e.Markets[market]
	if !ok {
		return MarketRule{}, fmt.Errorf("%w: %q for provider %q", ErrMarketNotFound, market, provider)
	}
	if err := r.validator.Struct(rule); err != nil {
		return MarketRule{}, fmt.Errorf("invalid odds_market_mapping for %q (provider %q): %w", market, provider, err)
	}

	return rule, nil
}

func (r *Registry) validEntry(provider string) (Entry, error) {
	e, err := r.Entry(provider)
	if err != nil {
		return Entry{}, err
	}
	if err := r.validator.Struct(e); err != nil {
		return Entry{}, fmt.Errorf("%w %q: %w", ErrInvalidProvider, normalize(provider), err)
	}

	return e, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
