package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{
		Opt("a", Number(WithDefault(1.0))),
		Opt("inner", Object(Fields{Opt("b", String(WithDefault("x")))}, WithDefault(map[string]any{}))),
		Opt("noDefault", Object(Fields{Opt("c", Number(WithDefault(3.0)))})),
	}, WithDefault(map[string]any{}))

	got := v.Default(s, nil)
	want := map[string]any{
		"a":     1.0,
		"inner": map[string]any{"b": "x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Default (-want +got):\n%s", diff)
	}
}

func TestDefault_UnionPicksMatchingBranch(t *testing.T) {
	v := NewValidator()
	got := v.Default(envelopeUnion(), map[string]any{"strategy": "default"})
	want := map[string]any{
		"strategy": "default",
		"config":   map[string]any{"radius": 2.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Default (-want +got):\n%s", diff)
	}
}

func TestClean(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{
		Opt("keep", Number()),
		Opt("open", Object(nil, Open())),
	})
	got := v.Clean(s, map[string]any{
		"keep":  1.0,
		"drop":  true,
		"open":  map[string]any{"extra": "stays"},
		"other": "gone",
	})
	want := map[string]any{
		"keep": 1.0,
		"open": map[string]any{"extra": "stays"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean (-want +got):\n%s", diff)
	}
}

func TestUnknownKeys(t *testing.T) {
	s := Object(Fields{
		Opt("a", Number()),
		Opt("list", Array(Object(Fields{Opt("x", Number())}))),
	})
	value := map[string]any{
		"a":    1.0,
		"zzz":  true,
		"list": []any{map[string]any{"x": 1.0}, map[string]any{"y": 2.0}},
	}
	got := UnknownKeys(s, value, "/root")
	want := []Issue{
		{Path: "/root/list/1/y", Message: "Unknown key"},
		{Path: "/root/zzz", Message: "Unknown key"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnknownKeys (-want +got):\n%s", diff)
	}
}

func TestUnknownKeys_UnionReportsClosestBranch(t *testing.T) {
	value := map[string]any{
		"strategy": "wide",
		"config":   map[string]any{"spread": 1.0, "typo": 2.0},
	}
	got := UnknownKeys(envelopeUnion(), value, "/step/op")
	want := []Issue{{Path: "/step/op/config/typo", Message: "Unknown key"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnknownKeys (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{P("n", Number(Min(0), Max(10)))})

	if issues := v.Validate(s, map[string]any{"n": 5.0}, "/x"); len(issues) != 0 {
		t.Errorf("valid value produced issues: %v", issues)
	}

	issues := v.Validate(s, map[string]any{"n": 11.0}, "/x")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %v", issues)
	}
	if issues[0].Path != "/x/n" {
		t.Errorf("path = %q, want /x/n", issues[0].Path)
	}

	issues = v.Validate(s, map[string]any{}, "/x")
	if len(issues) == 0 || !strings.Contains(FormatIssues(issues), "n") {
		t.Errorf("missing required property not reported: %v", issues)
	}
}

func TestNormalizeStrict(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{Opt("n", Number(WithDefault(2.0)))}, WithDefault(map[string]any{}))

	raw := map[string]any{"stray": 1.0}
	got, issues := v.NormalizeStrict(s, raw, "/cfg")
	want := []Issue{{Path: "/cfg/stray", Message: "Unknown key"}}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Errorf("issues (-want +got):\n%s", diff)
	}
	if _, ok := raw["n"]; ok {
		t.Error("NormalizeStrict mutated its input")
	}

	got, issues = v.NormalizeStrict(s, nil, "/cfg")
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if diff := cmp.Diff(map[string]any{"n": 2.0}, got); diff != "" {
		t.Errorf("normalized (-want +got):\n%s", diff)
	}
}

func TestValidateStrict_DoesNotDefault(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{P("n", Number(WithDefault(2.0)))})
	if issues := v.ValidateStrict(s, map[string]any{}, "/"); len(issues) == 0 {
		t.Error("ValidateStrict should not fill defaults")
	}
	if !v.Check(s, map[string]any{"n": 1.0}) {
		t.Error("Check rejected a valid value")
	}
}

func TestDefault_KeepsExplicitNull(t *testing.T) {
	v := NewValidator()
	s := Object(Fields{Opt("n", Number(WithDefault(2.0)))})
	got := v.Default(s, map[string]any{"n": nil})
	if diff := cmp.Diff(map[string]any{"n": nil}, got); diff != "" {
		t.Errorf("Default (-want +got):\n%s", diff)
	}
	if issues := v.Validate(s, got, "/cfg"); len(issues) != 1 || issues[0].Path != "/cfg/n" {
		t.Errorf("explicit null should fail validation at /cfg/n, got %v", issues)
	}
}

func TestUnknownKeys_UnionFollowsStrategyTag(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{"key from another strategy", map[string]any{"radius": 2.0}},
		{"valid key next to a foreign one", map[string]any{"spread": 1.0, "radius": 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := map[string]any{"strategy": "wide", "config": tt.config}
			got := UnknownKeys(envelopeUnion(), value, "/op")
			want := []Issue{{Path: "/op/config/radius", Message: "Unknown key"}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("UnknownKeys (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateStrict_UnionReportsOnlyTheForeignKey(t *testing.T) {
	v := NewValidator()
	value := map[string]any{"strategy": "wide", "config": map[string]any{"radius": 2.0}}
	got := v.ValidateStrict(envelopeUnion(), value, "/op")
	want := []Issue{{Path: "/op/config/radius", Message: "Unknown key"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValidateStrict (-want +got):\n%s", diff)
	}
}

func TestValidate_DeduplicatesBranchIssues(t *testing.T) {
	v := NewValidator()
	s := Union(
		Object(Fields{Opt("a", Number())}),
		Object(Fields{Opt("b", String())}),
	)
	issues := v.Validate(s, map[string]any{"bogus": true}, "/x")
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if issues[0].Path != "/x" || !strings.Contains(issues[0].Message, "bogus") {
		t.Errorf("unexpected issue %v", issues[0])
	}
}
