// Package plan compiles run requests into execution plans: the ordered,
// validated node list an executor walks.
package plan

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

// Plan is a compiled execution plan.
type Plan struct {
	RecipeSchemaVersion int            `json:"recipeSchemaVersion"`
	RecipeID            string         `json:"recipeId,omitempty"`
	Settings            SettingsV2     `json:"settings"`
	Nodes               []Node         `json:"nodes"`
	Extensions          map[string]any `json:"extensions,omitempty"`
}

// Node is one step to execute with its resolved config.
type Node struct {
	StepID   string            `json:"stepId"`
	NodeID   string            `json:"nodeId,omitempty"`
	Phase    string            `json:"phase"`
	Requires []string          `json:"requires"`
	Provides []string          `json:"provides"`
	Config   map[string]any    `json:"config"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// Fingerprint returns the plan's stable SHA-256 fingerprint.
func (p *Plan) Fingerprint() (string, error) {
	return trace.Fingerprint(p)
}

// Code classifies a plan compile error item.
type Code string

const (
	CodeRunRequestInvalid Code = "runRequest.invalid"
	CodeStepUnknown       Code = "step.unknown"
	CodeStepConfigInvalid Code = "step.config.invalid"
)

// ErrorItem is one plan compile diagnostic.
type ErrorItem struct {
	Code    Code   `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	StepID  string `json:"stepId,omitempty"`
	NodeID  string `json:"nodeId,omitempty"`
}

func (e ErrorItem) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// CompileError aggregates every item found by one compile call.
type CompileError struct {
	Errors []ErrorItem `json:"errors"`
}

func (e *CompileError) Error() string {
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, fmt.Sprintf("execution plan compile failed with %d error(s)", len(e.Errors)))
	for _, item := range e.Errors {
		lines = append(lines, "  "+item.String())
	}
	return strings.Join(lines, "\n")
}

// Has reports whether any item carries code.
func (e *CompileError) Has(code Code) bool {
	for _, item := range e.Errors {
		if item.Code == code {
			return true
		}
	}
	return false
}
