package plan

import (
	"fmt"
	"sort"

	"github.com/ormasoftchile/mapgen/pkg/kernel/recipe"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
	"github.com/ormasoftchile/mapgen/pkg/kernel/step"
)

// StepDefinition is what the plan compiler needs to know about a step.
type StepDefinition struct {
	Phase        string
	Requires     []string
	Provides     []string
	ConfigSchema *schema.Schema // optional
}

// Registry is a read-only step lookup supplied by the caller.
type Registry interface {
	Has(id string) bool
	Get(id string) StepDefinition
}

// MapRegistry is a Registry backed by a map.
type MapRegistry map[string]StepDefinition

func (r MapRegistry) Has(id string) bool { _, ok := r[id]; return ok }

func (r MapRegistry) Get(id string) StepDefinition { return r[id] }

// IDs returns the registered step ids in sorted order.
func (r MapRegistry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register adds a step, rejecting duplicates.
func (r MapRegistry) Register(id string, def StepDefinition) error {
	if _, dup := r[id]; dup {
		return fmt.Errorf("step %q already registered", id)
	}
	r[id] = def
	return nil
}

// RegistryFromModules registers each module's contract.
func RegistryFromModules(modules ...*step.Module) (MapRegistry, error) {
	r := MapRegistry{}
	for _, m := range modules {
		err := r.Register(m.ID, StepDefinition{
			Phase:        m.Phase,
			Requires:     m.Requires,
			Provides:     m.Provides,
			ConfigSchema: m.Schema,
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegistryFromRecipe registers every step of every stage of def.
func RegistryFromRecipe(def *recipe.Definition) (MapRegistry, error) {
	var modules []*step.Module
	for _, st := range def.Stages {
		modules = append(modules, st.Steps()...)
	}
	return RegistryFromModules(modules...)
}
