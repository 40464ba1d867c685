// Package sportmonks adapts the SportMonks football v3 API to the pipeline's row types.
package sportmonks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/transport"
)

// Name is the provider name used in providers_config.yaml and the provider column.
const Name = "sportmonks"

// Client calls SportMonks endpoints resolved through the provider registry.
type Client struct {
	http     *transport.Client
	registry *provider.Registry
	token    string
	lggr     logger.Logger
	now      func() time.Time
	// windowPause separates retries of a premium history window.
	windowPause time.Duration
}

// New returns a SportMonks client authenticating with token.
func New(lggr logger.Logger, http *transport.Client, registry *provider.Registry, token string) *Client {
	return &Client{
		http:        http,
		registry:    registry,
		token:       token,
		lggr:        lggr.Named(Name),
		now:         time.Now,
		windowPause: 500 * time.Millisecond,
	}
}

func (c *Client) url(endpoint string, args map[string]string) (string, error) {
	return c.registry.URL(Name, endpoint, args)
}

func (c *Client) params(extra map[string]string) map[string]string {
	p := map[string]string{"api_token": c.token}
	for k, v := range extra {
		p[k] = v
	}

	return p
}

// get fetches endpoint with backoff and returns the raw body.
func (c *Client) get(ctx context.Context, endpoint string, args, params map[string]string, timeout time.Duration) (json.RawMessage, error) {
	u, err := c.url(endpoint, args)
	if err != nil {
		return nil, err
	}

	body, err := c.http.GetJSON(ctx, transport.Request{URL: u, Params: c.params(params), Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("sportmonks %s: %w", endpoint, err)
	}

	return body, nil
}

func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode sportmonks payload: %w", err)
	}

	return nil
}

// objects normalizes a data field that may be a single object or a list of objects.
func objects(raw json.RawMessage) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		var m map[string]any
		if err := decode(raw, &m); err != nil {
			return nil, err
		}

		return []map[string]any{m}, nil
	case '[':
		var items []any
		if err := decode(raw, &items); err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}

		return out, nil
	default:
		return nil, nil
	}
}

func itoa(id int64) string { return fmt.Sprintf("%d", id) }
