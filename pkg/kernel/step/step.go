// Package step defines step contracts and step modules.
package step

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/op"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// ReservedKey may not be used as a step id or public property; stage configs
// use it for knobs.
const ReservedKey = "knobs"

var kebabRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsKebab reports whether id is lower-case kebab-case.
func IsKebab(id string) bool { return kebabRe.MatchString(id) }

// CheckID validates a step id.
func CheckID(id string) error {
	if id == ReservedKey {
		return fmt.Errorf("step id %q is reserved", id)
	}
	if !IsKebab(id) {
		return fmt.Errorf("step id %q must be kebab-case", id)
	}
	return nil
}

// Definition is the metadata shared by every step authoring shape.
type Definition struct {
	ID       string
	Phase    string
	Requires []string
	Provides []string
}

// Contract is a fully built step contract.
type Contract struct {
	ID       string
	Phase    string
	Requires []string
	Provides []string
	Schema   *schema.Schema

	// Ops maps op key → op contract. Envelopes holds the built envelope
	// for each key.
	Ops       map[string]op.Contract
	Envelopes map[string]*op.Envelope
}

// DefineSchemaContract passes schema through unchanged.
func DefineSchemaContract(def Definition, s *schema.Schema) (*Contract, error) {
	if s == nil {
		return nil, fmt.Errorf("step %q: schema is required", def.ID)
	}
	return newContract(def, s, nil, nil)
}

// DefineOpsContract derives the schema as a closed object with one envelope
// property per op key.
func DefineOpsContract(def Definition, ops map[string]op.Contract) (*Contract, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("step %q: at least one op is required", def.ID)
	}
	envelopes, err := buildEnvelopes(def.ID, ops)
	if err != nil {
		return nil, err
	}
	fields := make(schema.Fields, 0, len(ops))
	for _, key := range sortedKeys(ops) {
		fields = append(fields, schema.P(key, envelopes[key].Schema))
	}
	return newContract(def, schema.Object(fields), ops, envelopes)
}

// DefineHybridContract overwrites the op-key properties of an author-written
// object schema with the derived envelope schemas. Every op key must already
// be declared by s; all other properties and settings are kept.
func DefineHybridContract(def Definition, s *schema.Schema, ops map[string]op.Contract) (*Contract, error) {
	if !schema.IsObject(s) {
		return nil, fmt.Errorf("step %q: hybrid schema must be an object", def.ID)
	}
	envelopes, err := buildEnvelopes(def.ID, ops)
	if err != nil {
		return nil, err
	}
	merged := schema.ShallowCopy(s)
	for _, key := range sortedKeys(ops) {
		if _, ok := schema.Property(s, key); !ok {
			return nil, fmt.Errorf("step %q: hybrid schema does not declare op key %q", def.ID, key)
		}
		merged.Properties.Set(key, envelopes[key].Schema)
	}
	return newContract(def, merged, ops, envelopes)
}

// MustDefineSchemaContract panics on error.
func MustDefineSchemaContract(def Definition, s *schema.Schema) *Contract {
	return must(DefineSchemaContract(def, s))
}

// MustDefineOpsContract panics on error.
func MustDefineOpsContract(def Definition, ops map[string]op.Contract) *Contract {
	return must(DefineOpsContract(def, ops))
}

// MustDefineHybridContract panics on error.
func MustDefineHybridContract(def Definition, s *schema.Schema, ops map[string]op.Contract) *Contract {
	return must(DefineHybridContract(def, s, ops))
}

func must(c *Contract, err error) *Contract {
	if err != nil {
		panic(err)
	}
	return c
}

func newContract(def Definition, s *schema.Schema, ops map[string]op.Contract, envelopes map[string]*op.Envelope) (*Contract, error) {
	if err := CheckID(def.ID); err != nil {
		return nil, err
	}
	return &Contract{
		ID:        def.ID,
		Phase:     def.Phase,
		Requires:  nonNil(def.Requires),
		Provides:  nonNil(def.Provides),
		Schema:    s,
		Ops:       ops,
		Envelopes: envelopes,
	}, nil
}

func buildEnvelopes(stepID string, ops map[string]op.Contract) (map[string]*op.Envelope, error) {
	out := make(map[string]*op.Envelope, len(ops))
	var errs []error
	for _, key := range sortedKeys(ops) {
		e, err := op.BuildEnvelopeSchema(ops[key].ID, ops[key].Strategies)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %q op %q: %w", stepID, key, err))
			continue
		}
		out[key] = e
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// OpKeys returns the declared op keys in sorted order.
func (c *Contract) OpKeys() []string { return sortedKeys(c.Ops) }

// OpRefs maps op key → op contract id, the shape op.BindCompileOps expects.
func (c *Contract) OpRefs() map[string]string {
	refs := make(map[string]string, len(c.Ops))
	for k, oc := range c.Ops {
		refs[k] = oc.ID
	}
	return refs
}

// NormalizeFunc rewrites a validated step config at compile time. It must
// preserve the schema shape of the config.
type NormalizeFunc func(config map[string]any, ctx env.CompileContext) (map[string]any, error)

// RunFunc executes a step against a live map context owned by the executor.
type RunFunc func(ctx any, config map[string]any) error

// Module is a step contract with its hooks.
type Module struct {
	*Contract
	Normalize NormalizeFunc
	Run       RunFunc
}

// Implementation carries a module's hooks.
type Implementation struct {
	Normalize NormalizeFunc
	Run       RunFunc
}

// Create binds hooks to a contract.
func Create(c *Contract, impl Implementation) *Module {
	return &Module{Contract: c, Normalize: impl.Normalize, Run: impl.Run}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
