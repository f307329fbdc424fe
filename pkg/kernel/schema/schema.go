// Package schema is the kernel's schema engine: builders for Draft 2020-12
// schemas, TypeBox-style default filling and cleaning, the union-aware
// unknown-key walker, and strict validation.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Schema is the Draft 2020-12 document model used by every contract.
type Schema = jsonschema.Schema

// Option adjusts a schema under construction.
type Option func(*Schema)

// WithDefault sets the schema's default value.
func WithDefault(v any) Option {
	return func(s *Schema) { s.Default = v }
}

// Min sets the inclusive minimum of a numeric schema.
func Min(n float64) Option {
	return func(s *Schema) { s.Minimum = number(n) }
}

// Max sets the inclusive maximum of a numeric schema.
func Max(n float64) Option {
	return func(s *Schema) { s.Maximum = number(n) }
}

// Description sets the schema's description.
func Description(d string) Option {
	return func(s *Schema) { s.Description = d }
}

// Open allows undeclared properties on an object schema.
func Open() Option {
	return func(s *Schema) { s.AdditionalProperties = nil }
}

func number(n float64) json.Number {
	return json.Number(strconv.FormatFloat(n, 'f', -1, 64))
}

func apply(s *Schema, opts []Option) *Schema {
	for _, o := range opts {
		o(s)
	}
	return s
}

// Field is one declared property of an object schema.
type Field struct {
	Name     string
	Schema   *Schema
	Optional bool
}

// Fields is an ordered list of object properties.
type Fields []Field

// P declares a required property.
func P(name string, s *Schema) Field { return Field{Name: name, Schema: s} }

// Opt declares an optional property.
func Opt(name string, s *Schema) Field { return Field{Name: name, Schema: s, Optional: true} }

// Object builds a closed object schema. Use Open to allow extra keys.
func Object(fields Fields, opts ...Option) *Schema {
	s := &Schema{
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	for _, f := range fields {
		s.Properties.Set(f.Name, f.Schema)
		if !f.Optional {
			s.Required = append(s.Required, f.Name)
		}
	}
	return apply(s, opts)
}

// Number builds a number schema.
func Number(opts ...Option) *Schema { return apply(&Schema{Type: "number"}, opts) }

// Integer builds an integer schema.
func Integer(opts ...Option) *Schema { return apply(&Schema{Type: "integer"}, opts) }

// String builds a string schema.
func String(opts ...Option) *Schema { return apply(&Schema{Type: "string"}, opts) }

// Boolean builds a boolean schema.
func Boolean(opts ...Option) *Schema { return apply(&Schema{Type: "boolean"}, opts) }

// Array builds an array schema whose items match items.
func Array(items *Schema, opts ...Option) *Schema {
	return apply(&Schema{Type: "array", Items: items}, opts)
}

// Enum builds a string schema restricted to values.
func Enum(values []string, opts ...Option) *Schema {
	s := &Schema{Type: "string"}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return apply(s, opts)
}

// Literal builds a schema matching exactly v.
func Literal(v any, opts ...Option) *Schema {
	s := &Schema{Const: v}
	switch v.(type) {
	case string:
		s.Type = "string"
	case bool:
		s.Type = "boolean"
	case int, int32, int64, float32, float64:
		s.Type = "number"
	default:
		panic(fmt.Sprintf("schema: unsupported literal %T", v))
	}
	return apply(s, opts)
}

// Union builds a schema accepting any of variants.
func Union(variants ...*Schema) *Schema {
	return &Schema{AnyOf: variants}
}

// Unknown builds a schema accepting any value.
func Unknown() *Schema { return &Schema{} }

// IsClosed reports whether s is the boolean false schema, i.e. an object
// using it as additionalProperties accepts no undeclared keys.
func IsClosed(s *Schema) bool {
	if s == nil {
		return false
	}
	if s == jsonschema.FalseSchema || reflect.DeepEqual(s, &Schema{Not: &Schema{}}) {
		return true
	}
	data, err := json.Marshal(s)
	return err == nil && string(data) == "false"
}

// IsObject reports whether s declares an object shape.
func IsObject(s *Schema) bool {
	return s != nil && (s.Type == "object" || s.Properties != nil)
}

// Property returns the declared property schema for key.
func Property(s *Schema, key string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(key)
}

// PropertyNames returns the declared property names in declaration order.
func PropertyNames(s *Schema) []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// ShallowCopy returns a copy of s with its own property map, so callers may
// replace properties without touching the original.
func ShallowCopy(s *Schema) *Schema {
	cp := *s
	if s.Properties != nil {
		cp.Properties = jsonschema.NewProperties()
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			cp.Properties.Set(pair.Key, pair.Value)
		}
	}
	if s.Required != nil {
		cp.Required = append([]string(nil), s.Required...)
	}
	return &cp
}

// FromJSON decodes a JSON Schema document.
func FromJSON(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// FromValue decodes a schema from a JSON-shaped value such as a YAML mapping.
func FromValue(v any) (*Schema, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return FromJSON(data)
}
