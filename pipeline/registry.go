package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Registry is a store for stages that allows retrieval by id.
type Registry struct {
	stages []*Stage[any, any, any]
}

// NewRegistry creates a new Registry with the provided untyped stages.
func NewRegistry(stages ...*Stage[any, any, any]) *Registry {
	return &Registry{
		stages: stages,
	}
}

// Retrieve returns the stage matching the definition's id and version.
func (r *Registry) Retrieve(def Definition) (*Stage[any, any, any], error) {
	for _, s := range r.stages {
		if s.ID() == def.ID && s.Version() == def.Version.String() {
			return s, nil
		}
	}

	return nil, fmt.Errorf("stage %s@%s not found in registry", def.ID, def.Version)
}

// Lookup returns the latest registered version of the stage id.
func (r *Registry) Lookup(id string) (*Stage[any, any, any], error) {
	var found *Stage[any, any, any]
	for _, s := range r.stages {
		if s.ID() != id {
			continue
		}
		if found == nil || s.def.Version.GreaterThan(found.def.Version) {
			found = s
		}
	}
	if found == nil {
		return nil, fmt.Errorf("stage %q not found in registry", id)
	}

	return found, nil
}

// Definitions lists the registered stages sorted by id and version.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.stages))
	for _, s := range r.stages {
		out = append(out, s.def)
	}
	slices.SortFunc(out, func(a, b Definition) int {
		if c := strings.Compare(a.ID, b.ID); c != 0 {
			return c
		}

		return a.Version.Compare(b.Version)
	})

	return out
}

// Register adds stages to the registry.
// To register stages with different input, output, and dependency types,
// call Register multiple times with different type parameters.
func Register[IN, OUT, DEP any](r *Registry, stages ...*Stage[IN, OUT, DEP]) {
	for _, s := range stages {
		r.stages = append(r.stages, s.AsUntyped())
	}
}
