package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider/transport"
)

// RateLimitPolicy controls how long a stage keeps retrying a rate-limited request.
// The n-th retry waits min(Max, Base*Factor^(n-1)).
type RateLimitPolicy struct {
	Attempts uint
	Base     time.Duration
	Max      time.Duration
	Factor   float64
}

var (
	// LineupPolicy is used for per-fixture lineup fetches.
	LineupPolicy = RateLimitPolicy{Attempts: 12, Base: 2 * time.Second, Max: 60 * time.Second, Factor: 1.6}
	// OddsPolicy is used for historical odds snapshots.
	OddsPolicy = RateLimitPolicy{Attempts: 10, Base: 2 * time.Second, Max: 60 * time.Second, Factor: 1.6}
)

// Delay returns the wait before retry n, counted from zero.
func (p RateLimitPolicy) Delay(n uint) time.Duration {
	return transport.Backoff(p.Base, p.Max, p.Factor, n, 1)
}

// IsRateLimited reports whether err is a 429 from a provider.
func IsRateLimited(err error) bool {
	return errors.Is(err, transport.ErrRateLimited) || transport.StatusCode(err) == 429
}

// RetryRateLimited calls fn until it succeeds, fails with anything but a 429, the context is done
// or the policy's attempts are used up.
func RetryRateLimited[T any](ctx context.Context, lggr logger.Logger, p RateLimitPolicy, what string, fn func(context.Context) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.RetryIf(IsRateLimited),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.Delay(n)
		}),
		retry.OnRetry(func(n uint, err error) {
			lggr.Warnw("Rate limited, backing off",
				"request", what, "attempt", n+1, "maxAttempts", p.Attempts, "wait", p.Delay(n))
		}),
	)
}
