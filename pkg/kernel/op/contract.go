// Package op defines domain operations: pluggable algorithm points selected
// at configuration time through a named strategy.
package op

import (
	"fmt"
	"sort"

	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// Kind classifies what an op produces.
type Kind string

const (
	KindPlan    Kind = "plan"
	KindCompute Kind = "compute"
	KindScore   Kind = "score"
	KindSelect  Kind = "select"
)

// DefaultStrategy is the strategy every op must declare.
const DefaultStrategy = "default"

// Contract declares an op's identity, I/O schemas and strategy config schemas.
type Contract struct {
	Kind       Kind
	ID         string
	Input      *schema.Schema
	Output     *schema.Schema
	Strategies map[string]*schema.Schema
}

// DefineContract checks the structural shape of c. Strategy rules are
// enforced by BuildEnvelopeSchema.
func DefineContract(c Contract) (Contract, error) {
	switch c.Kind {
	case KindPlan, KindCompute, KindScore, KindSelect:
	default:
		return Contract{}, fmt.Errorf("op %q: invalid kind %q: must be plan, compute, score, or select", c.ID, c.Kind)
	}
	if c.ID == "" {
		return Contract{}, fmt.Errorf("op contract requires an id")
	}
	if c.Input == nil {
		c.Input = schema.Unknown()
	}
	if c.Output == nil {
		c.Output = schema.Unknown()
	}
	return c, nil
}

// MustDefineContract is DefineContract for package-level definitions.
func MustDefineContract(c Contract) Contract {
	out, err := DefineContract(c)
	if err != nil {
		panic(err)
	}
	return out
}

// StrategyNames returns the declared strategy names, "default" first and the
// rest sorted.
func (c Contract) StrategyNames() []string {
	return strategyNames(c.Strategies)
}

func strategyNames(strategies map[string]*schema.Schema) []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		if name != DefaultStrategy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := strategies[DefaultStrategy]; ok {
		names = append([]string{DefaultStrategy}, names...)
	}
	return names
}
