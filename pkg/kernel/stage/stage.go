// Package stage groups steps under a stage id with a knobs schema and an
// optional curated public surface.
package stage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
	"github.com/ormasoftchile/mapgen/pkg/kernel/step"
)

// ErrPublicWithoutCompile is returned for a public schema with no compile.
var ErrPublicWithoutCompile = errors.New("stage defines public but does not define compile")

// CompileFunc translates public config plus knobs into raw per-step configs
// keyed by step id.
type CompileFunc func(settings env.Settings, knobs map[string]any, config map[string]any) (map[string]any, error)

// Definition is the author-facing stage declaration.
type Definition struct {
	ID      string
	Steps   []*step.Module
	Knobs   *schema.Schema
	Public  *schema.Schema
	Compile CompileFunc
}

// Stage is a validated, immutable stage contract.
type Stage struct {
	id      string
	steps   []*step.Module
	stepIDs map[string]bool
	knobs   *schema.Schema
	public  *schema.Schema
	compile CompileFunc
	surface *schema.Schema
}

// Define validates def and builds the stage's surface schema.
func Define(def Definition) (*Stage, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("stage requires an id")
	}
	if def.ID == step.ReservedKey {
		return nil, fmt.Errorf("stage id %q is reserved", def.ID)
	}

	ids := make(map[string]bool, len(def.Steps))
	for _, m := range def.Steps {
		if m == nil || m.Contract == nil {
			return nil, fmt.Errorf("stage %q: nil step", def.ID)
		}
		if err := step.CheckID(m.ID); err != nil {
			return nil, fmt.Errorf("stage %q: %w", def.ID, err)
		}
		if ids[m.ID] {
			return nil, fmt.Errorf("stage %q: duplicate step id %q", def.ID, m.ID)
		}
		ids[m.ID] = true
	}

	if def.Public != nil {
		if def.Compile == nil {
			return nil, fmt.Errorf("stage %q: %w", def.ID, ErrPublicWithoutCompile)
		}
		if !schema.IsObject(def.Public) {
			return nil, fmt.Errorf("stage %q: public schema must be an object", def.ID)
		}
		if _, ok := schema.Property(def.Public, step.ReservedKey); ok {
			return nil, fmt.Errorf("stage %q: public schema may not declare %q", def.ID, step.ReservedKey)
		}
	}

	knobs := def.Knobs
	if knobs == nil {
		knobs = schema.Object(nil)
	}
	if knobs.Default == nil && schema.IsObject(knobs) {
		knobs = schema.ShallowCopy(knobs)
		knobs.Default = map[string]any{}
	}

	s := &Stage{
		id:      def.ID,
		steps:   def.Steps,
		stepIDs: ids,
		knobs:   knobs,
		public:  def.Public,
		compile: def.Compile,
	}
	s.surface = s.buildSurface()
	return s, nil
}

// MustDefine panics on error.
func MustDefine(def Definition) *Stage {
	s, err := Define(def)
	if err != nil {
		panic(err)
	}
	return s
}

// buildSurface returns the closed author-facing schema. Without a public
// schema every step id is an optional untyped property; with one, the
// public properties replace them.
func (s *Stage) buildSurface() *schema.Schema {
	fields := schema.Fields{schema.Opt(step.ReservedKey, s.knobs)}
	if s.public == nil {
		for _, m := range s.steps {
			fields = append(fields, schema.Opt(m.ID, schema.Unknown()))
		}
		return schema.Object(fields, schema.WithDefault(map[string]any{}))
	}

	required := make(map[string]bool, len(s.public.Required))
	for _, r := range s.public.Required {
		required[r] = true
	}
	for _, name := range schema.PropertyNames(s.public) {
		prop, _ := schema.Property(s.public, name)
		fields = append(fields, schema.Field{Name: name, Schema: prop, Optional: !required[name]})
	}
	return schema.Object(fields, schema.WithDefault(map[string]any{}))
}

func (s *Stage) ID() string                   { return s.id }
func (s *Stage) Steps() []*step.Module        { return s.steps }
func (s *Stage) Surface() *schema.Schema      { return s.surface }
func (s *Stage) KnobsSchema() *schema.Schema  { return s.knobs }
func (s *Stage) PublicSchema() *schema.Schema { return s.public }
func (s *Stage) HasPublic() bool              { return s.public != nil }

// StepIDs returns the stage's step ids in declaration order.
func (s *Stage) StepIDs() []string {
	ids := make([]string, len(s.steps))
	for i, m := range s.steps {
		ids[i] = m.ID
	}
	return ids
}

// ToInternal splits a normalized stage config into knobs and raw step
// configs, running the curated compile when the stage has a public surface.
func (s *Stage) ToInternal(settings env.Settings, stageConfig map[string]any) (knobs map[string]any, rawSteps map[string]any, err error) {
	knobs = map[string]any{}
	rest := make(map[string]any, len(stageConfig))
	for k, v := range stageConfig {
		if k == step.ReservedKey {
			if m, ok := v.(map[string]any); ok {
				knobs = m
			}
			continue
		}
		rest[k] = v
	}

	if s.public == nil {
		return knobs, rest, nil
	}

	rawSteps, err = s.compile(settings, knobs, rest)
	if err != nil {
		return nil, nil, err
	}
	if _, leaked := rawSteps[step.ReservedKey]; leaked {
		return nil, nil, fmt.Errorf("stage %q: compile returned reserved key %q", s.id, step.ReservedKey)
	}
	var unknown []string
	for k := range rawSteps {
		if !s.stepIDs[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, fmt.Errorf("stage %q: compile returned unknown step ids %v", s.id, unknown)
	}
	return knobs, rawSteps, nil
}
