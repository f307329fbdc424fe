package schema

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Join appends a path segment to a slash-delimited path.
func Join(base string, segs ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

// Index appends an array index to a slash-delimited path.
func Index(base string, i int) string { return Join(base, strconv.Itoa(i)) }

// Default fills absent values from schema defaults, recursing into declared
// object properties, array items, and union branches. The value is modified in
// place where possible; callers clone first.
//
// Nested objects are only created when their schema carries a default. A key
// present with an explicit null is not absent and is left for validation.
func (v *Validator) Default(s *Schema, value any) any {
	if s == nil {
		return value
	}
	if value == nil && s.Default != nil {
		value = Clone(s.Default)
	}

	if branches := unionBranches(s); len(branches) > 0 {
		for _, b := range branches {
			candidate := v.Default(b, Clone(value))
			if v.Check(b, candidate) {
				return candidate
			}
		}
		return value
	}

	switch val := value.(type) {
	case map[string]any:
		if s.Properties != nil {
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				item, present := val[pair.Key]
				if present && item == nil {
					continue
				}
				if filled := v.Default(pair.Value, item); filled != nil {
					val[pair.Key] = filled
				}
			}
		}
		if extra := s.AdditionalProperties; extra != nil && !IsClosed(extra) {
			for k, item := range val {
				if _, declared := Property(s, k); !declared && item != nil {
					val[k] = v.Default(extra, item)
				}
			}
		}
	case []any:
		if s.Items != nil {
			for i := range val {
				if val[i] != nil {
					val[i] = v.Default(s.Items, val[i])
				}
			}
		}
	}
	return value
}

// Clean drops undeclared keys from closed objects. Open objects keep their
// extra keys. Union values are cleaned against the first branch they satisfy,
// or else against the single branch their literal tags select.
func (v *Validator) Clean(s *Schema, value any) any {
	if s == nil {
		return value
	}
	if branches := unionBranches(s); len(branches) > 0 {
		for _, b := range branches {
			if v.Check(b, value) {
				return v.Clean(b, value)
			}
		}
		if tagged := taggedBranches(branches, value); len(tagged) == 1 {
			return v.Clean(tagged[0], value)
		}
		return value
	}

	switch val := value.(type) {
	case map[string]any:
		if s.Properties == nil && s.AdditionalProperties == nil {
			return val
		}
		closed := IsClosed(s.AdditionalProperties)
		for k, item := range val {
			if prop, ok := Property(s, k); ok {
				val[k] = v.Clean(prop, item)
				continue
			}
			switch {
			case closed:
				delete(val, k)
			case s.AdditionalProperties != nil:
				val[k] = v.Clean(s.AdditionalProperties, item)
			}
		}
	case []any:
		if s.Items != nil {
			for i := range val {
				val[i] = v.Clean(s.Items, val[i])
			}
		}
	}
	return value
}

// UnknownKeys reports every key of a closed object that its schema does not
// declare, at that key's exact path.
//
// The walker exists because standard validators report unknown keys inside
// unions only as an opaque branch failure. For a union it first narrows to the
// branches whose literal properties (such as a strategy tag) match the value,
// then keeps the issues of the branch producing the fewest, so a value that
// fits one variant except for a stray key is reported against that variant.
func UnknownKeys(s *Schema, value any, path string) []Issue {
	if s == nil {
		return nil
	}
	if branches := unionBranches(s); len(branches) > 0 {
		if tagged := taggedBranches(branches, value); len(tagged) > 0 {
			branches = tagged
		}
		var best []Issue
		for i, b := range branches {
			issues := UnknownKeys(b, value, path)
			if i == 0 || len(issues) < len(best) {
				best = issues
			}
			if len(best) == 0 {
				break
			}
		}
		return best
	}

	var issues []Issue
	switch val := value.(type) {
	case map[string]any:
		closed := IsClosed(s.AdditionalProperties)
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			keyPath := Join(path, k)
			if prop, ok := Property(s, k); ok {
				issues = append(issues, UnknownKeys(prop, val[k], keyPath)...)
				continue
			}
			switch {
			case closed:
				issues = append(issues, Issue{Path: keyPath, Message: "Unknown key"})
			case s.AdditionalProperties != nil:
				issues = append(issues, UnknownKeys(s.AdditionalProperties, val[k], keyPath)...)
			}
		}
	case []any:
		if s.Items != nil {
			for i, item := range val {
				issues = append(issues, UnknownKeys(s.Items, item, Index(path, i))...)
			}
		}
	}
	return issues
}

// taggedBranches returns the object branches whose literal-valued properties
// all equal the corresponding values of value. Branches without literal
// properties never match.
func taggedBranches(branches []*Schema, value any) []*Schema {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	var out []*Schema
	for _, b := range branches {
		if literalsMatch(b, obj) {
			out = append(out, b)
		}
	}
	return out
}

func literalsMatch(s *Schema, obj map[string]any) bool {
	if s == nil || s.Properties == nil {
		return false
	}
	tags := 0
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil || pair.Value.Const == nil {
			continue
		}
		tags++
		item, ok := obj[pair.Key]
		if !ok || !reflect.DeepEqual(Clone(item), Clone(pair.Value.Const)) {
			return false
		}
	}
	return tags > 0
}

func unionBranches(s *Schema) []*Schema {
	if len(s.AnyOf) > 0 {
		return s.AnyOf
	}
	return s.OneOf
}
