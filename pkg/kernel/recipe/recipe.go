// Package recipe compiles author-facing recipe configuration into canonical,
// fully defaulted per-step configs.
package recipe

import (
	"fmt"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/op"
	"github.com/ormasoftchile/mapgen/pkg/kernel/stage"
)

// Definition is an ordered list of stages.
type Definition struct {
	ID     string
	Stages []*stage.Stage
}

// Define checks that stage ids are unique.
func Define(id string, stages ...*stage.Stage) (*Definition, error) {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("recipe %q: nil stage", id)
		}
		if seen[s.ID()] {
			return nil, fmt.Errorf("recipe %q: duplicate stage id %q", id, s.ID())
		}
		seen[s.ID()] = true
	}
	return &Definition{ID: id, Stages: stages}, nil
}

// MustDefine panics on error.
func MustDefine(id string, stages ...*stage.Stage) *Definition {
	d, err := Define(id, stages...)
	if err != nil {
		panic(err)
	}
	return d
}

// Stage returns the stage with the given id.
func (d *Definition) Stage(id string) (*stage.Stage, bool) {
	for _, s := range d.Stages {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Input is one compile call.
type Input struct {
	Env    env.Settings
	Recipe *Definition
	// Config is keyed by stage id.
	Config map[string]any
	Ops    op.Registry
}

// CompiledConfig maps stage id → step id → canonical step config.
type CompiledConfig map[string]map[string]map[string]any

// Step returns the compiled config of one step.
func (c CompiledConfig) Step(stageID, stepID string) (map[string]any, bool) {
	steps, ok := c[stageID]
	if !ok {
		return nil, false
	}
	cfg, ok := steps[stepID]
	return cfg, ok
}
