package op

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps op contract ids to implementations.
type Registry map[string]*DomainOp

// NewRegistry indexes ops by id, rejecting duplicates.
func NewRegistry(ops ...*DomainOp) (Registry, error) {
	r := make(Registry, len(ops))
	for _, o := range ops {
		if _, dup := r[o.ID()]; dup {
			return nil, fmt.Errorf("duplicate op id %q", o.ID())
		}
		r[o.ID()] = o
	}
	return r, nil
}

// Missing names one op key whose contract id is absent from a registry.
type Missing struct {
	Key string
	ID  string
}

// MissingError lists every op key that could not be bound.
type MissingError struct {
	Missing []Missing
}

func (e *MissingError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = fmt.Sprintf("%s (%s)", m.Key, m.ID)
	}
	return "op missing: " + strings.Join(parts, ", ")
}

// BindCompileOps resolves op key → contract id against r. Keys that resolve
// are returned even when others are missing; the error is a *MissingError.
func BindCompileOps(refs map[string]string, r Registry) (map[string]*DomainOp, error) {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bound := make(map[string]*DomainOp, len(refs))
	var missing []Missing
	for _, k := range keys {
		o, ok := r[refs[k]]
		if !ok {
			missing = append(missing, Missing{Key: k, ID: refs[k]})
			continue
		}
		bound[k] = o
	}
	if len(missing) > 0 {
		return bound, &MissingError{Missing: missing}
	}
	return bound, nil
}

// BindRuntimeOps is BindCompileOps narrowed to the run-time surface.
func BindRuntimeOps(refs map[string]string, r Registry) (map[string]Runtime, error) {
	bound, err := BindCompileOps(refs, r)
	out := make(map[string]Runtime, len(bound))
	for k, o := range bound {
		out[k] = RuntimeOp(o)
	}
	return out, err
}
