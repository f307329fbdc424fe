package op

import (
	"errors"
	"fmt"

	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// ErrNoDefaultStrategy is returned when a strategy set lacks "default".
var ErrNoDefaultStrategy = errors.New(`strategies must include "default"`)

// Envelope is an op's tagged {strategy, config} schema plus the canonical
// default envelope value.
type Envelope struct {
	Schema  *schema.Schema
	Default map[string]any
}

// BuildEnvelopeSchema builds the envelope union for an op's strategies. Each
// variant is a closed {strategy: literal(name), config: strategies[name]}
// object. The default envelope selects "default" with the config produced by
// defaulting then cleaning an empty object against that strategy's schema.
func BuildEnvelopeSchema(id string, strategies map[string]*schema.Schema) (*Envelope, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("op %q: no strategies declared", id)
	}
	if _, ok := strategies[DefaultStrategy]; !ok {
		return nil, fmt.Errorf("op %q: %w", id, ErrNoDefaultStrategy)
	}

	names := strategyNames(strategies)
	variants := make([]*schema.Schema, 0, len(names))
	for _, name := range names {
		cfg := strategies[name]
		if cfg == nil {
			return nil, fmt.Errorf("op %q: strategy %q has no config schema", id, name)
		}
		if cfg.Default == nil && schema.IsObject(cfg) {
			cfg = schema.ShallowCopy(cfg)
			cfg.Default = map[string]any{}
		}
		variants = append(variants, schema.Object(schema.Fields{
			schema.P("strategy", schema.Literal(name)),
			schema.P("config", cfg),
		}))
	}

	v := schema.NewValidator()
	def := strategies[DefaultStrategy]
	cfg := v.Clean(def, v.Default(def, map[string]any{}))
	return &Envelope{
		Schema: schema.Union(variants...),
		Default: map[string]any{
			"strategy": DefaultStrategy,
			"config":   cfg,
		},
	}, nil
}

// DefaultValue returns a fresh copy of the default envelope.
func (e *Envelope) DefaultValue() map[string]any {
	return schema.Clone(e.Default).(map[string]any)
}

// StrategyOf returns the strategy tag of an envelope value.
func StrategyOf(envelope map[string]any) (string, bool) {
	s, ok := envelope["strategy"].(string)
	return s, ok
}

// ConfigOf returns the config object of an envelope value.
func ConfigOf(envelope map[string]any) map[string]any {
	cfg, _ := envelope["config"].(map[string]any)
	return cfg
}
