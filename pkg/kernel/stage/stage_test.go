package stage

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
	"github.com/ormasoftchile/mapgen/pkg/kernel/step"
)

func module(id string) *step.Module {
	c := step.MustDefineSchemaContract(step.Definition{ID: id, Phase: "test"}, schema.Object(nil))
	return step.Create(c, step.Implementation{})
}

func publicSchema() *schema.Schema {
	return schema.Object(schema.Fields{
		schema.P("wetness", schema.Number()),
		schema.Opt("rivers", schema.Boolean()),
	})
}

func passThrough(_ env.Settings, _ map[string]any, config map[string]any) (map[string]any, error) {
	return map[string]any{"rainfall": config}, nil
}

func TestDefine_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want string
	}{
		{"empty id", Definition{}, "requires an id"},
		{"reserved id", Definition{ID: "knobs"}, "reserved"},
		{"nil step", Definition{ID: "s", Steps: []*step.Module{nil}}, "nil step"},
		{"duplicate step", Definition{ID: "s", Steps: []*step.Module{module("a"), module("a")}}, "duplicate step id"},
		{"public without compile", Definition{ID: "s", Public: publicSchema()}, ErrPublicWithoutCompile.Error()},
		{"public not object", Definition{ID: "s", Public: schema.String(), Compile: passThrough}, "must be an object"},
		{
			"public declares knobs",
			Definition{ID: "s", Public: schema.Object(schema.Fields{schema.Opt("knobs", schema.Number())}), Compile: passThrough},
			`may not declare "knobs"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Define(tt.def)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Define error = %v, want containing %q", err, tt.want)
			}
		})
	}

	_, err := Define(Definition{ID: "s", Public: publicSchema()})
	if !errors.Is(err, ErrPublicWithoutCompile) {
		t.Errorf("errors.Is(ErrPublicWithoutCompile) = false for %v", err)
	}
}

func TestSurface_Internal(t *testing.T) {
	s := MustDefine(Definition{ID: "foundation", Steps: []*step.Module{module("plates"), module("elevation")}})

	surface := s.Surface()
	if diff := cmp.Diff([]string{"knobs", "plates", "elevation"}, schema.PropertyNames(surface)); diff != "" {
		t.Errorf("surface properties (-want +got):\n%s", diff)
	}
	if len(surface.Required) != 0 {
		t.Errorf("internal surface should not require anything, got %v", surface.Required)
	}
	if !schema.IsClosed(surface.AdditionalProperties) {
		t.Error("surface should be closed")
	}
	if diff := cmp.Diff(map[string]any{}, s.KnobsSchema().Default); diff != "" {
		t.Errorf("knobs default (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"plates", "elevation"}, s.StepIDs()); diff != "" {
		t.Errorf("StepIDs (-want +got):\n%s", diff)
	}
}

func TestSurface_Public(t *testing.T) {
	s := MustDefine(Definition{
		ID:      "climate",
		Steps:   []*step.Module{module("rainfall")},
		Public:  publicSchema(),
		Compile: passThrough,
	})
	surface := s.Surface()
	if diff := cmp.Diff([]string{"knobs", "wetness", "rivers"}, schema.PropertyNames(surface)); diff != "" {
		t.Errorf("surface properties (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"wetness"}, surface.Required); diff != "" {
		t.Errorf("surface required (-want +got):\n%s", diff)
	}
	if !s.HasPublic() || s.PublicSchema() == nil {
		t.Error("public schema missing")
	}
}

func TestToInternal_Internal(t *testing.T) {
	s := MustDefine(Definition{ID: "foundation", Steps: []*step.Module{module("plates")}})
	knobs, raw, err := s.ToInternal(env.Settings{}, map[string]any{
		"knobs":  map[string]any{"scale": 2.0},
		"plates": map[string]any{"count": 3.0},
	})
	if err != nil {
		t.Fatalf("ToInternal: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"scale": 2.0}, knobs); diff != "" {
		t.Errorf("knobs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"plates": map[string]any{"count": 3.0}}, raw); diff != "" {
		t.Errorf("raw steps (-want +got):\n%s", diff)
	}
}

func TestToInternal_Public(t *testing.T) {
	var sawKnobs map[string]any
	var sawSeed int64
	s := MustDefine(Definition{
		ID:     "climate",
		Steps:  []*step.Module{module("rainfall")},
		Public: publicSchema(),
		Compile: func(settings env.Settings, knobs, config map[string]any) (map[string]any, error) {
			sawKnobs, sawSeed = knobs, settings.Seed
			return map[string]any{"rainfall": map[string]any{"amount": config["wetness"]}}, nil
		},
	})
	_, raw, err := s.ToInternal(env.Settings{Seed: 9}, map[string]any{"wetness": 0.4})
	if err != nil {
		t.Fatalf("ToInternal: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"rainfall": map[string]any{"amount": 0.4}}, raw); diff != "" {
		t.Errorf("raw steps (-want +got):\n%s", diff)
	}
	if sawSeed != 9 || sawKnobs == nil {
		t.Errorf("compile saw seed %d knobs %v", sawSeed, sawKnobs)
	}
}

func TestToInternal_CompileResultChecked(t *testing.T) {
	tests := []struct {
		name   string
		result map[string]any
		want   string
	}{
		{"reserved key", map[string]any{"knobs": map[string]any{}}, "reserved key"},
		{"unknown steps", map[string]any{"zeta": nil, "alpha": nil}, "[alpha zeta]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustDefine(Definition{
				ID:     "climate",
				Steps:  []*step.Module{module("rainfall")},
				Public: publicSchema(),
				Compile: func(env.Settings, map[string]any, map[string]any) (map[string]any, error) {
					return tt.result, nil
				},
			})
			_, _, err := s.ToInternal(env.Settings{}, map[string]any{"wetness": 1.0})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
