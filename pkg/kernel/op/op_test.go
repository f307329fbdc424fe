package op

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

func smoothContract() Contract {
	return MustDefineContract(Contract{
		Kind: KindCompute,
		ID:   "terrain/smooth",
		Strategies: map[string]*schema.Schema{
			"default": schema.Object(schema.Fields{
				schema.Opt("passes", schema.Integer(schema.WithDefault(2.0))),
			}),
			"aggressive": schema.Object(schema.Fields{
				schema.Opt("passes", schema.Integer(schema.WithDefault(6.0))),
				schema.Opt("falloff", schema.Number()),
			}),
		},
	})
}

func echo(input any, config map[string]any) (any, error) {
	return map[string]any{"input": input, "config": config}, nil
}

func TestDefineContract(t *testing.T) {
	if _, err := DefineContract(Contract{Kind: "transform", ID: "x"}); err == nil {
		t.Error("expected error for invalid kind")
	}
	if _, err := DefineContract(Contract{Kind: KindPlan}); err == nil {
		t.Error("expected error for missing id")
	}
	c, err := DefineContract(Contract{Kind: KindScore, ID: "x"})
	if err != nil {
		t.Fatalf("DefineContract: %v", err)
	}
	if c.Input == nil || c.Output == nil {
		t.Error("input and output schemas should default to unknown")
	}
}

func TestStrategyNames(t *testing.T) {
	got := smoothContract().StrategyNames()
	if diff := cmp.Diff([]string{"default", "aggressive"}, got); diff != "" {
		t.Errorf("StrategyNames (-want +got):\n%s", diff)
	}
}

func TestBuildEnvelopeSchema(t *testing.T) {
	c := smoothContract()
	e, err := BuildEnvelopeSchema(c.ID, c.Strategies)
	if err != nil {
		t.Fatalf("BuildEnvelopeSchema: %v", err)
	}
	want := map[string]any{"strategy": "default", "config": map[string]any{"passes": 2.0}}
	if diff := cmp.Diff(want, e.DefaultValue()); diff != "" {
		t.Errorf("default envelope (-want +got):\n%s", diff)
	}
	if len(e.Schema.AnyOf) != 2 {
		t.Errorf("expected 2 variants, got %d", len(e.Schema.AnyOf))
	}

	v := schema.NewValidator()
	good := map[string]any{"strategy": "aggressive", "config": map[string]any{"passes": 8.0}}
	if issues := v.ValidateStrict(e.Schema, good, "/e"); len(issues) != 0 {
		t.Errorf("valid envelope rejected: %v", issues)
	}
	bad := map[string]any{"strategy": "gentle", "config": map[string]any{}}
	if v.Check(e.Schema, bad) {
		t.Error("undeclared strategy accepted")
	}

	d := e.DefaultValue()
	d["strategy"] = "mutated"
	if e.Default["strategy"] != "default" {
		t.Error("DefaultValue returned shared state")
	}
}

func TestBuildEnvelopeSchema_Errors(t *testing.T) {
	_, err := BuildEnvelopeSchema("x", map[string]*schema.Schema{"fast": schema.Object(nil)})
	if !errors.Is(err, ErrNoDefaultStrategy) {
		t.Errorf("expected ErrNoDefaultStrategy, got %v", err)
	}
	if _, err := BuildEnvelopeSchema("x", nil); err == nil {
		t.Error("expected error for no strategies")
	}
}

func TestCreate(t *testing.T) {
	c := smoothContract()
	if _, err := Create(c, Implementation{Strategies: map[string]Strategy{"default": {Run: echo}}}); err == nil {
		t.Error("expected error for unimplemented strategy")
	}
	_, err := Create(c, Implementation{Strategies: map[string]Strategy{
		"default":    {Run: echo},
		"aggressive": {Run: echo},
		"extra":      {Run: echo},
	}})
	if err == nil || !strings.Contains(err.Error(), "not declared") {
		t.Errorf("expected undeclared strategy error, got %v", err)
	}
}

func TestDomainOp_RunValidated(t *testing.T) {
	o := MustCreate(smoothContract(), Implementation{Strategies: map[string]Strategy{
		"default":    {Run: echo},
		"aggressive": {Run: echo},
	}})

	out, err := o.RunValidated(1.0, map[string]any{"strategy": "aggressive", "config": map[string]any{"passes": 3.0}})
	if err != nil {
		t.Fatalf("RunValidated: %v", err)
	}
	if got := out.(map[string]any)["config"]; !cmp.Equal(got, map[string]any{"passes": 3.0}) {
		t.Errorf("strategy saw config %v", got)
	}

	_, err = o.RunValidated(1.0, map[string]any{"strategy": "aggressive", "config": map[string]any{"passes": "many"}})
	if err == nil {
		t.Error("expected validation error")
	}

	if _, err := o.Run(nil, map[string]any{}); err == nil {
		t.Error("expected error for envelope without strategy")
	}
}

func TestDomainOp_Normalize(t *testing.T) {
	ctx := env.CompileContext{Knobs: map[string]any{"scale": 2.0}}
	o := MustCreate(smoothContract(), Implementation{Strategies: map[string]Strategy{
		"default": {Run: echo},
		"aggressive": {
			Run: echo,
			Normalize: func(cfg map[string]any, ctx env.CompileContext) (map[string]any, error) {
				cfg["passes"] = cfg["passes"].(float64) * ctx.Knobs["scale"].(float64)
				return cfg, nil
			},
		},
	}})
	if !o.HasNormalize() {
		t.Fatal("HasNormalize = false")
	}

	got, err := o.Normalize(map[string]any{"strategy": "aggressive", "config": map[string]any{"passes": 3.0}}, ctx)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := map[string]any{"strategy": "aggressive", "config": map[string]any{"passes": 6.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize (-want +got):\n%s", diff)
	}

	unchanged := map[string]any{"strategy": "default", "config": map[string]any{"passes": 1.0}}
	got, err = o.Normalize(unchanged, ctx)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if diff := cmp.Diff(unchanged, got); diff != "" {
		t.Errorf("strategy without normalizer changed envelope (-want +got):\n%s", diff)
	}
}

func TestBindCompileOps(t *testing.T) {
	o := MustCreate(smoothContract(), Implementation{Strategies: map[string]Strategy{
		"default":    {Run: echo},
		"aggressive": {Run: echo},
	}})
	reg, err := NewRegistry(o)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := NewRegistry(o, o); err == nil {
		t.Error("expected duplicate op id error")
	}

	bound, err := BindCompileOps(map[string]string{
		"smooth": "terrain/smooth",
		"erode":  "terrain/erode",
		"carve":  "terrain/carve",
	}, reg)
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingError, got %v", err)
	}
	want := []Missing{{Key: "carve", ID: "terrain/carve"}, {Key: "erode", ID: "terrain/erode"}}
	if diff := cmp.Diff(want, missing.Missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if bound["smooth"] != o {
		t.Error("resolvable key was not bound")
	}

	rt, err := BindRuntimeOps(map[string]string{"smooth": "terrain/smooth"}, reg)
	if err != nil {
		t.Fatalf("BindRuntimeOps: %v", err)
	}
	if rt["smooth"].ID() != "terrain/smooth" {
		t.Errorf("runtime op id = %q", rt["smooth"].ID())
	}
	if _, canNormalize := rt["smooth"].(interface {
		Normalize(map[string]any, env.CompileContext) (map[string]any, error)
	}); canNormalize {
		t.Error("runtime surface exposes Normalize")
	}
}
