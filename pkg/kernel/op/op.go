package op

import (
	"fmt"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// RunFunc executes one strategy against a validated input and config.
type RunFunc func(input any, config map[string]any) (any, error)

// ConfigNormalizeFunc rewrites a strategy config at compile time.
type ConfigNormalizeFunc func(config map[string]any, ctx env.CompileContext) (map[string]any, error)

// NormalizeFunc rewrites a whole envelope at compile time.
type NormalizeFunc func(envelope map[string]any, ctx env.CompileContext) (map[string]any, error)

// Strategy implements one declared strategy.
type Strategy struct {
	Run       RunFunc
	Normalize ConfigNormalizeFunc
}

// Implementation binds strategies to a contract. Normalize, when set, takes
// precedence over per-strategy normalizers.
type Implementation struct {
	Strategies map[string]Strategy
	Normalize  NormalizeFunc
}

// Runtime is the surface of an op visible to step code at run time. It has
// no way to normalize configuration.
type Runtime interface {
	ID() string
	Kind() Kind
	InputSchema() *schema.Schema
	OutputSchema() *schema.Schema
	ConfigSchema() *schema.Schema
	DefaultConfig() map[string]any
	Run(input any, envelope map[string]any) (any, error)
	Validate(input any, envelope map[string]any) []schema.Issue
	RunValidated(input any, envelope map[string]any) (any, error)
}

// DomainOp is a contract bound to its implementation. It is the compile-time
// view; use RuntimeOp to hand it to step code.
type DomainOp struct {
	contract   Contract
	envelope   *Envelope
	strategies map[string]Strategy
	normalize  NormalizeFunc
	validator  *schema.Validator
}

// Create binds impl to c. Every declared strategy must be implemented and no
// undeclared strategy may be supplied.
func Create(c Contract, impl Implementation) (*DomainOp, error) {
	envelope, err := BuildEnvelopeSchema(c.ID, c.Strategies)
	if err != nil {
		return nil, err
	}
	for name := range c.Strategies {
		s, ok := impl.Strategies[name]
		if !ok || s.Run == nil {
			return nil, fmt.Errorf("op %q: strategy %q is not implemented", c.ID, name)
		}
	}
	for name := range impl.Strategies {
		if _, ok := c.Strategies[name]; !ok {
			return nil, fmt.Errorf("op %q: strategy %q is not declared by the contract", c.ID, name)
		}
	}
	if c.Input == nil {
		c.Input = schema.Unknown()
	}
	if c.Output == nil {
		c.Output = schema.Unknown()
	}
	return &DomainOp{
		contract:   c,
		envelope:   envelope,
		strategies: impl.Strategies,
		normalize:  impl.Normalize,
		validator:  schema.NewValidator(),
	}, nil
}

// MustCreate is Create for package-level definitions.
func MustCreate(c Contract, impl Implementation) *DomainOp {
	o, err := Create(c, impl)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *DomainOp) ID() string                    { return o.contract.ID }
func (o *DomainOp) Kind() Kind                    { return o.contract.Kind }
func (o *DomainOp) Contract() Contract            { return o.contract }
func (o *DomainOp) InputSchema() *schema.Schema   { return o.contract.Input }
func (o *DomainOp) OutputSchema() *schema.Schema  { return o.contract.Output }
func (o *DomainOp) ConfigSchema() *schema.Schema  { return o.envelope.Schema }
func (o *DomainOp) DefaultConfig() map[string]any { return o.envelope.DefaultValue() }

// Run dispatches to the envelope's strategy without validating.
func (o *DomainOp) Run(input any, envelope map[string]any) (any, error) {
	name, ok := StrategyOf(envelope)
	if !ok {
		return nil, fmt.Errorf("op %q: envelope has no strategy", o.ID())
	}
	s, ok := o.strategies[name]
	if !ok {
		return nil, fmt.Errorf("op %q: unknown strategy %q", o.ID(), name)
	}
	return s.Run(input, ConfigOf(envelope))
}

// Validate checks input and envelope against the contract.
func (o *DomainOp) Validate(input any, envelope map[string]any) []schema.Issue {
	issues := o.validator.Validate(o.contract.Input, schema.Clone(input), "/input")
	return append(issues, o.validator.ValidateStrict(o.envelope.Schema, schema.Clone(envelope), "/config")...)
}

// RunValidated validates, then runs.
func (o *DomainOp) RunValidated(input any, envelope map[string]any) (any, error) {
	if issues := o.Validate(input, envelope); len(issues) > 0 {
		return nil, fmt.Errorf("op %q: invalid call:\n%s", o.ID(), schema.FormatIssues(issues))
	}
	return o.Run(input, envelope)
}

// HasNormalize reports whether the op rewrites envelopes at compile time.
func (o *DomainOp) HasNormalize() bool {
	if o.normalize != nil {
		return true
	}
	for _, s := range o.strategies {
		if s.Normalize != nil {
			return true
		}
	}
	return false
}

// Normalize rewrites an envelope at compile time. Without an op-level hook
// the selected strategy's config normalizer is applied; envelopes are
// returned unchanged when neither exists.
func (o *DomainOp) Normalize(envelope map[string]any, ctx env.CompileContext) (map[string]any, error) {
	if o.normalize != nil {
		return o.normalize(envelope, ctx)
	}
	name, _ := StrategyOf(envelope)
	s, ok := o.strategies[name]
	if !ok || s.Normalize == nil {
		return envelope, nil
	}
	cfg, err := s.Normalize(ConfigOf(envelope), ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"strategy": name, "config": cfg}, nil
}

type runtimeOp struct {
	op *DomainOp
}

// RuntimeOp narrows o to its run-time surface.
func RuntimeOp(o *DomainOp) Runtime { return runtimeOp{op: o} }

func (r runtimeOp) ID() string                    { return r.op.ID() }
func (r runtimeOp) Kind() Kind                    { return r.op.Kind() }
func (r runtimeOp) InputSchema() *schema.Schema   { return r.op.InputSchema() }
func (r runtimeOp) OutputSchema() *schema.Schema  { return r.op.OutputSchema() }
func (r runtimeOp) ConfigSchema() *schema.Schema  { return r.op.ConfigSchema() }
func (r runtimeOp) DefaultConfig() map[string]any { return r.op.DefaultConfig() }

func (r runtimeOp) Run(input any, envelope map[string]any) (any, error) {
	return r.op.Run(input, envelope)
}

func (r runtimeOp) Validate(input any, envelope map[string]any) []schema.Issue {
	return r.op.Validate(input, envelope)
}

func (r runtimeOp) RunValidated(input any, envelope map[string]any) (any, error) {
	return r.op.RunValidated(input, envelope)
}
