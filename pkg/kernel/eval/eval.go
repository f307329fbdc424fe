// Package eval compiles and runs the expressions used by declarative stage
// compile mappings.
//
// Expressions see three variables: env (the run settings), knobs (the stage
// knobs) and config (the stage's public config).
package eval

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Scope holds the variables visible to an expression.
type Scope struct {
	Env    map[string]any
	Knobs  map[string]any
	Config map[string]any
}

func (s Scope) vars() map[string]any {
	return map[string]any{
		"env":    nonNil(s.Env),
		"knobs":  nonNil(s.Knobs),
		"config": nonNil(s.Config),
	}
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Program is a compiled expression.
type Program struct {
	src  string
	prog *vm.Program
}

// Compile type-checks src against the scope shape.
func Compile(src string) (*Program, error) {
	prog, err := expr.Compile(src, options()...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Program{src: src, prog: prog}, nil
}

func options() []expr.Option {
	return []expr.Option{
		expr.Env(Scope{}.vars()),
		expr.Function("clamp", clamp),
	}
}

// clamp(v, lo, hi) bounds a number to [lo, hi].
func clamp(params ...any) (any, error) {
	if len(params) != 3 {
		return nil, fmt.Errorf("clamp: want 3 arguments, got %d", len(params))
	}
	var f [3]float64
	for i, p := range params {
		n, ok := toFloat(p)
		if !ok {
			return nil, fmt.Errorf("clamp: argument %d is %T, not a number", i+1, p)
		}
		f[i] = n
	}
	return math.Min(math.Max(f[0], f[1]), f[2]), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// String returns the source text.
func (p *Program) String() string { return p.src }

// Run evaluates the program in scope.
func (p *Program) Run(scope Scope) (any, error) {
	out, err := expr.Run(p.prog, scope.vars())
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", p.src, err)
	}
	return out, nil
}

// Mapping computes raw step configs: step id → field → expression.
type Mapping map[string]map[string]*Program

// CompileMapping compiles every expression of src, reporting all failures.
func CompileMapping(src map[string]map[string]string) (Mapping, error) {
	m := make(Mapping, len(src))
	var errs []error
	for _, stepID := range sortedKeys(src) {
		fields := src[stepID]
		m[stepID] = make(map[string]*Program, len(fields))
		for _, field := range sortedKeys(fields) {
			p, err := Compile(fields[field])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", stepID, field, err))
				continue
			}
			m[stepID][field] = p
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// Eval runs every expression in scope. Fields evaluating to nil are left out
// so that schema defaults apply.
func (m Mapping) Eval(scope Scope) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for _, stepID := range sortedKeys(m) {
		cfg := map[string]any{}
		for _, field := range sortedKeys(m[stepID]) {
			v, err := m[stepID][field].Run(scope)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", stepID, field, err)
			}
			if v != nil {
				cfg[field] = v
			}
		}
		out[stepID] = cfg
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
