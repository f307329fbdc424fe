package eval

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProgram_Run(t *testing.T) {
	scope := Scope{
		Env:    map[string]any{"seed": 41.0, "dimensions": map[string]any{"width": 80.0}},
		Knobs:  map[string]any{"scale": 2.0},
		Config: map[string]any{"wetness": 0.25, "rivers": true},
	}
	tests := []struct {
		src  string
		want any
	}{
		{"env.seed + 1", 42.0},
		{"env.dimensions.width / 2", 40.0},
		{"config.wetness * knobs.scale", 0.5},
		{"config.rivers", true},
		{"clamp(config.wetness * 400, 0, 80)", 80.0},
		{"clamp(-3, 0, 10)", 0.0},
		{"knobs.missing ?? 7", 7},
		{`config.rivers ? "wet" : "dry"`, "wet"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if p.String() != tt.src {
				t.Errorf("String() = %q", p.String())
			}
			got, err := p.Run(scope)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, src := range []string{"config.x +", "unknownVar", "clamp("} {
		if _, err := Compile(src); err == nil {
			t.Errorf("Compile(%q) succeeded", src)
		}
	}
}

func TestClamp_RejectsNonNumbers(t *testing.T) {
	p, err := Compile(`clamp(config.name, 0, 1)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = p.Run(Scope{Config: map[string]any{"name": "x"}})
	if err == nil || !strings.Contains(err.Error(), "not a number") {
		t.Errorf("expected clamp type error, got %v", err)
	}
	if _, err := clamp(1.0, 2.0); err == nil {
		t.Error("expected arity error")
	}
}

func TestCompileMapping(t *testing.T) {
	m, err := CompileMapping(map[string]map[string]string{
		"rainfall": {"amount": "config.wetness * 100", "bands": "knobs.bands ?? nil"},
		"rivers":   {"enabled": "config.wetness > 0.2"},
	})
	if err != nil {
		t.Fatalf("CompileMapping: %v", err)
	}
	got, err := m.Eval(Scope{Config: map[string]any{"wetness": 0.5}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := map[string]any{
		"rainfall": map[string]any{"amount": 50.0},
		"rivers":   map[string]any{"enabled": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Eval (-want +got):\n%s", diff)
	}
}

func TestCompileMapping_ReportsEveryError(t *testing.T) {
	_, err := CompileMapping(map[string]map[string]string{
		"a": {"x": "1 +"},
		"b": {"y": "nope("},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, part := range []string{"a.x", "b.y"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q does not mention %s", err, part)
		}
	}
}

func TestMapping_EvalError(t *testing.T) {
	m, err := CompileMapping(map[string]map[string]string{"a": {"x": "clamp(config.v, 0, 1)"}})
	if err != nil {
		t.Fatalf("CompileMapping: %v", err)
	}
	if _, err := m.Eval(Scope{Config: map[string]any{"v": "text"}}); err == nil {
		t.Error("expected evaluation error")
	}
}
