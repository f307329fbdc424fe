// Package manifest loads declarative recipe definitions from YAML.
//
// A manifest declares stages, their knobs and public schemas as JSON Schema
// literals, schema-only steps, and a stage compile mapping whose fields are
// expressions over env, knobs and config.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/eval"
	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
	"github.com/ormasoftchile/mapgen/pkg/kernel/recipe"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
	"github.com/ormasoftchile/mapgen/pkg/kernel/stage"
	"github.com/ormasoftchile/mapgen/pkg/kernel/step"
)

// APIVersion is the only manifest version understood.
const APIVersion = "mapgen/v1"

// Manifest is the top-level document.
type Manifest struct {
	APIVersion string      `yaml:"apiVersion"`
	Recipe     RecipeMeta  `yaml:"recipe"`
	Stages     []StageSpec `yaml:"stages"`
}

// RecipeMeta identifies the recipe.
type RecipeMeta struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`
}

// StageSpec declares one stage.
type StageSpec struct {
	ID          string                       `yaml:"id"`
	Description string                       `yaml:"description,omitempty"`
	Knobs       map[string]any               `yaml:"knobs,omitempty"`
	Public      map[string]any               `yaml:"public,omitempty"`
	Compile     map[string]map[string]string `yaml:"compile,omitempty"`
	Steps       []StepSpec                   `yaml:"steps"`
}

// StepSpec declares one schema-only step.
type StepSpec struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Phase       string         `yaml:"phase"`
	Requires    []string       `yaml:"requires,omitempty"`
	Provides    []string       `yaml:"provides,omitempty"`
	Schema      map[string]any `yaml:"schema,omitempty"`
}

// LoadFile reads and structurally decodes a manifest.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a manifest, rejecting unknown fields.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	if m.APIVersion != APIVersion {
		return nil, fmt.Errorf("apiVersion: expected %q, got %q", APIVersion, m.APIVersion)
	}
	return &m, nil
}

// Bundle is a built manifest: the recipe for config compiles and the step
// registry for plan compiles.
type Bundle struct {
	Manifest *Manifest
	Recipe   *recipe.Definition
	Registry plan.MapRegistry
}

// Build turns the manifest into contracts. Every stage and step problem is
// reported.
func (m *Manifest) Build() (*Bundle, error) {
	var (
		stages []*stage.Stage
		errs   []error
	)
	for i, spec := range m.Stages {
		st, err := spec.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("stages[%d]: %w", i, err))
			continue
		}
		stages = append(stages, st)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	def, err := recipe.Define(m.Recipe.ID, stages...)
	if err != nil {
		return nil, err
	}
	reg, err := plan.RegistryFromRecipe(def)
	if err != nil {
		return nil, err
	}
	return &Bundle{Manifest: m, Recipe: def, Registry: reg}, nil
}

// BuildFile loads and builds the manifest at path.
func BuildFile(path string) (*Bundle, error) {
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

func (s StageSpec) build() (*stage.Stage, error) {
	def := stage.Definition{ID: s.ID}

	var errs []error
	for j, spec := range s.Steps {
		mod, err := spec.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("steps[%d]: %w", j, err))
			continue
		}
		def.Steps = append(def.Steps, mod)
	}

	if s.Knobs != nil {
		k, err := schema.FromValue(s.Knobs)
		if err != nil {
			errs = append(errs, fmt.Errorf("knobs: %w", err))
		}
		def.Knobs = k
	}
	if s.Public != nil {
		p, err := schema.FromValue(s.Public)
		if err != nil {
			errs = append(errs, fmt.Errorf("public: %w", err))
		}
		def.Public = p
	}

	if s.Compile != nil {
		if s.Public == nil {
			errs = append(errs, errors.New("compile requires a public schema"))
		}
		mapping, err := eval.CompileMapping(s.Compile)
		if err != nil {
			errs = append(errs, fmt.Errorf("compile: %w", err))
		} else {
			def.Compile = compileFunc(mapping)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return stage.Define(def)
}

// compileFunc adapts an expression mapping to a stage compile hook.
func compileFunc(mapping eval.Mapping) stage.CompileFunc {
	return func(settings env.Settings, knobs, config map[string]any) (map[string]any, error) {
		return mapping.Eval(eval.Scope{Env: settings.Value(), Knobs: knobs, Config: config})
	}
}

func (s StepSpec) build() (*step.Module, error) {
	sch := schema.Object(nil, schema.WithDefault(map[string]any{}))
	if s.Schema != nil {
		var err error
		if sch, err = schema.FromValue(s.Schema); err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
	}
	c, err := step.DefineSchemaContract(step.Definition{
		ID:       s.ID,
		Phase:    s.Phase,
		Requires: s.Requires,
		Provides: s.Provides,
	}, sch)
	if err != nil {
		return nil, err
	}
	return step.Create(c, step.Implementation{}), nil
}
