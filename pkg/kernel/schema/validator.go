package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Issue is a single validation failure at a slash-delimited path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Validator checks values against schemas. Compiled schemas are memoised per
// schema pointer for the lifetime of the validator; schemas must therefore not
// be mutated after first use.
type Validator struct {
	mu       sync.Mutex
	compiled map[*Schema]*sjsonschema.Schema
	printer  *message.Printer
}

// NewValidator returns a validator with an empty compile cache.
func NewValidator() *Validator {
	return &Validator{
		compiled: make(map[*Schema]*sjsonschema.Schema),
		printer:  message.NewPrinter(language.English),
	}
}

func (v *Validator) compile(s *Schema) (*sjsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.compiled[s]; ok {
		return sch, nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.compiled[s] = sch
	return sch, nil
}

// Validate checks value against s and returns one issue per failing leaf
// constraint. Issue paths are rooted at path.
func (v *Validator) Validate(s *Schema, value any, path string) []Issue {
	if s == nil {
		return nil
	}
	sch, err := v.compile(s)
	if err != nil {
		return []Issue{{Path: path, Message: err.Error()}}
	}
	inst, err := instance(value)
	if err != nil {
		return []Issue{{Path: path, Message: err.Error()}}
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Path: path, Message: err.Error()}}
	}
	var issues []Issue
	seen := map[Issue]bool{}
	for _, cause := range flattenValidationErrors(ve) {
		is := Issue{
			Path:    Join(path, cause.InstanceLocation...),
			Message: cause.ErrorKind.LocalizedString(v.printer),
		}
		// anyOf branches often fail on the same leaf
		if seen[is] {
			continue
		}
		seen[is] = true
		issues = append(issues, is)
	}
	return issues
}

// Check reports whether value satisfies s.
func (v *Validator) Check(s *Schema, value any) bool {
	return len(v.Validate(s, value, "")) == 0
}

// ValidateStrict runs the unknown-key walk followed by standard validation,
// without defaulting. Undeclared keys are reported once, by the walk; value
// itself is not modified.
func (v *Validator) ValidateStrict(s *Schema, value any, path string) []Issue {
	issues := UnknownKeys(s, value, path)
	return append(issues, v.Validate(s, v.Clean(s, Clone(value)), path)...)
}

// NormalizeStrict clones raw, fills defaults, detects unknown keys, cleans the
// result and validates it. The returned value is only meaningful when no
// issues are reported.
func (v *Validator) NormalizeStrict(s *Schema, raw any, path string) (any, []Issue) {
	value := v.Default(s, Clone(raw))
	issues := UnknownKeys(s, value, path)
	value = v.Clean(s, value)
	issues = append(issues, v.Validate(s, value, path)...)
	return value, issues
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

func instance(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal instance: %w", err)
	}
	return sjsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// FormatIssues renders issues one per line.
func FormatIssues(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return strings.Join(lines, "\n")
}
