package recipe

import (
	"fmt"
	"strings"
)

// Code classifies a compile error item.
type Code string

const (
	CodeConfigInvalid           Code = "config.invalid"
	CodeStageCompileFailed      Code = "stage.compile.failed"
	CodeOpMissing               Code = "op.missing"
	CodeStepNormalizeFailed     Code = "step.normalize.failed"
	CodeOpNormalizeFailed       Code = "op.normalize.failed"
	CodeNormalizeNotShapeStable Code = "normalize.not.shape-preserving"
)

// ErrorItem is one diagnostic collected during a compile.
type ErrorItem struct {
	Code    Code   `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	StageID string `json:"stageId,omitempty"`
	StepID  string `json:"stepId,omitempty"`
	OpKey   string `json:"opKey,omitempty"`
	OpID    string `json:"opId,omitempty"`
}

func (e ErrorItem) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// CompileError carries every item recorded by one compile call.
type CompileError struct {
	Errors []ErrorItem `json:"errors"`
}

func (e *CompileError) Error() string {
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, fmt.Sprintf("recipe compile failed with %d error(s)", len(e.Errors)))
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
