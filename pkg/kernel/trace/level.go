// Package trace implements run tracing and stable fingerprints for execution
// plans.
package trace

import "github.com/invopop/jsonschema"

// Level controls how much a step emits.
type Level string

const (
	LevelOff     Level = "off"
	LevelBasic   Level = "basic"
	LevelVerbose Level = "verbose"
)

// JSONSchema restricts levels to the known set in reflected request schemas.
func (Level) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{string(LevelOff), string(LevelBasic), string(LevelVerbose)},
	}
}

// Config is the trace section of run settings.
type Config struct {
	Enabled *bool            `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Steps   map[string]Level `json:"steps,omitempty"   yaml:"steps,omitempty"`
}

// IsEnabled reports whether tracing is on. A config that names any step
// enables tracing unless Enabled is explicitly false.
func (c *Config) IsEnabled() bool {
	if c == nil {
		return false
	}
	if c.Enabled != nil {
		return *c.Enabled
	}
	return len(c.Steps) > 0
}

// ResolveLevel returns the level for stepID: off when tracing is disabled,
// otherwise the configured level or basic.
func ResolveLevel(c *Config, stepID string) Level {
	if !c.IsEnabled() {
		return LevelOff
	}
	if l, ok := c.Steps[stepID]; ok {
		return l
	}
	return LevelBasic
}
