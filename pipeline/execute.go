package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

var ErrNotSerializable = errors.New("stage input or output cannot be serialized to JSON")

// ExecuteConfig is the configuration for the ExecuteStage function.
type ExecuteConfig[IN, DEP any] struct {
	retryConfig RetryConfig[IN, DEP]
}

type ExecuteOption[IN, DEP any] func(*ExecuteConfig[IN, DEP])

type RetryConfig[IN, DEP any] struct {
	// Enabled determines if the retry is enabled for the stage.
	Enabled bool

	// Policy is the retry policy to control the behavior of the retry.
	Policy RetryPolicy

	// InputHook returns an updated input before the stage is retried.
	InputHook func(attempt uint, err error, input IN, deps DEP) IN
}

func newDisabledRetryConfig[IN, DEP any]() RetryConfig[IN, DEP] {
	return RetryConfig[IN, DEP]{
		Enabled: false,
		Policy: RetryPolicy{
			MaxAttempts: 3,
			Delay:       5 * time.Second,
		},
	}
}

// RetryPolicy defines the arguments to control the retry behavior.
type RetryPolicy struct {
	MaxAttempts uint
	Delay       time.Duration
}

func (p RetryPolicy) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(p.MaxAttempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

// WithRetry is an ExecuteOption that enables the default retry for the stage.
func WithRetry[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
	}
}

// WithRetryConfig is an ExecuteOption that sets the retry configuration.
func WithRetryConfig[IN, DEP any](config RetryConfig[IN, DEP]) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig = config
	}
}

// ExecuteStage runs the stage and records a report of the execution, successful or not.
//
// Retry:
// Disabled by default. Use WithRetry or WithRetryConfig to rerun a failed stage; stages are
// idempotent so a rerun continues where the failed attempt stopped.
// To cancel the retry early, return an error wrapped with retry.Unrecoverable.
//
// Input & Output:
// The input and output must be JSON serializable so they can be persisted with the report.
func ExecuteStage[IN, OUT, DEP any](
	b Bundle,
	stage *Stage[IN, OUT, DEP],
	deps DEP,
	input IN,
	opts ...ExecuteOption[IN, DEP],
) (Report[IN, OUT], error) {
	if _, err := json.Marshal(input); err != nil {
		return Report[IN, OUT]{}, fmt.Errorf("stage %s input: %w: %w", stage.def.ID, ErrNotSerializable, err)
	}

	executeConfig := &ExecuteConfig[IN, DEP]{
		retryConfig: newDisabledRetryConfig[IN, DEP](),
	}
	for _, opt := range opts {
		opt(executeConfig)
	}

	started := time.Now()
	var (
		output OUT
		err    error
	)
	if executeConfig.retryConfig.Enabled {
		inputTemp := input

		retryOpts := executeConfig.retryConfig.Policy.options()
		retryOpts = append(retryOpts, retry.Context(b.GetContext()))
		retryOpts = append(retryOpts, retry.OnRetry(func(attempt uint, err error) {
			b.Logger.Warnw("Stage failed. Retrying...",
				"stage", stage.def.ID, "attempt", attempt, "error", err)

			if executeConfig.retryConfig.InputHook != nil {
				inputTemp = executeConfig.retryConfig.InputHook(attempt, err, inputTemp, deps)
			}
		}))

		output, err = retry.DoWithData(
			func() (OUT, error) {
				return stage.execute(b, deps, inputTemp)
			},
			retryOpts...,
		)
	} else {
		output, err = stage.execute(b, deps, input)
	}

	if err == nil {
		if _, merr := json.Marshal(output); merr != nil {
			return Report[IN, OUT]{}, fmt.Errorf("stage %s output: %w: %w", stage.def.ID, ErrNotSerializable, merr)
		}
	}

	report := NewReport(stage.def, b.RunID, input, output, started, err)
	b.Metrics.observe(stage.def.ID, report.Duration().Seconds(), err)
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return report, errors.Join(err, fmt.Errorf("record report: %w", rerr))
	}

	if err != nil {
		b.Logger.Errorw("Stage failed", "stage", stage.def.ID, "duration", report.Duration(), "error", err)

		return report, err
	}
	b.Logger.Infow("Stage finished", "stage", stage.def.ID, "duration", report.Duration())

	return report, nil
}
