package pipeline

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/inattention/sportdata/pkg/logger"
)

// Bundle contains the dependencies shared by every stage of a run and is passed to each Handler.
// Use NewBundle to create a new Bundle.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	// RunID groups the reports of one pipeline invocation.
	RunID    string
	Metrics  *Metrics
	Registry *Registry
	reporter Reporter
}

// BundleOption is a functional option for configuring a Bundle.
type BundleOption func(*Bundle)

// WithRunID sets the run id recorded on every report.
func WithRunID(id string) BundleOption {
	return func(b *Bundle) {
		b.RunID = id
	}
}

// WithMetrics enables the stage collectors.
func WithMetrics(m *Metrics) BundleOption {
	return func(b *Bundle) {
		b.Metrics = m
	}
}

// WithRegistry sets a custom Registry for the Bundle.
func WithRegistry(r *Registry) BundleOption {
	return func(b *Bundle) {
		b.Registry = r
	}
}

// NewBundle creates and returns a new Bundle. A nil reporter keeps reports in memory.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter, opts ...BundleOption) Bundle {
	if reporter == nil {
		reporter = NewMemoryReporter()
	}
	b := Bundle{
		Logger:     lggr,
		GetContext: getContext,
		reporter:   reporter,
		Registry:   NewRegistry(),
	}
	for _, opt := range opts {
		opt(&b)
	}

	return b
}

// Reporter returns the reporter stage executions are recorded to.
func (b Bundle) Reporter() Reporter { return b.reporter }

// Handler is the function signature of a stage.
type Handler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Definition is the metadata of a stage.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// Stage is one step of the pipeline with typed input, output and dependencies.
// Use NewStage to create a new stage.
type Stage[IN, OUT, DEP any] struct {
	def     Definition
	handler Handler[IN, OUT, DEP]
}

// ID returns the stage ID.
func (s *Stage[IN, OUT, DEP]) ID() string {
	return s.def.ID
}

// Version returns the stage semver version in string.
func (s *Stage[IN, OUT, DEP]) Version() string {
	return s.def.Version.String()
}

// Description returns the stage description.
func (s *Stage[IN, OUT, DEP]) Description() string {
	return s.def.Description
}

// Def returns the stage definition.
func (s *Stage[IN, OUT, DEP]) Def() Definition {
	return s.def
}

func (s *Stage[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (OUT, error) {
	b.Logger.Infow("Executing stage",
		"id", s.def.ID, "version", s.def.Version, "runID", b.RunID)

	return s.handler(b, deps, input)
}

// AsUntyped converts the stage so it can be stored next to stages of other types.
// Input and dependency values are type-asserted when the untyped stage runs.
func (s *Stage[IN, OUT, DEP]) AsUntyped() *Stage[any, any, any] {
	return &Stage[any, any, any]{
		def: s.def,
		handler: func(b Bundle, deps any, input any) (any, error) {
			var typedInput IN
			if input != nil {
				var ok bool
				if typedInput, ok = input.(IN); !ok {
					return nil, errors.New("input type mismatch")
				}
			}

			var typedDeps DEP
			if deps != nil {
				var ok bool
				if typedDeps, ok = deps.(DEP); !ok {
					return nil, errors.New("dependencies type mismatch")
				}
			}

			return s.handler(b, typedDeps, typedInput)
		},
	}
}

// NewStage creates a new stage.
// Version can be created using semver.MustParse("1.0.0").
func NewStage[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler Handler[IN, OUT, DEP],
) *Stage[IN, OUT, DEP] {
	return &Stage[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}

// EmptyInput is a placeholder for stages that do not require input.
type EmptyInput struct{}
