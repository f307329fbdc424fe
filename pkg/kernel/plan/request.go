package plan

import (
	"github.com/invopop/jsonschema"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

// RunRequestV2 is the current run request format.
type RunRequestV2 struct {
	Recipe   RecipeV2   `json:"recipe"`
	Settings SettingsV2 `json:"settings"`
}

// RecipeV2 lists the steps to plan. Step ids are unique.
type RecipeV2 struct {
	SchemaVersion int           `json:"schemaVersion"`
	ID            string        `json:"id,omitempty"`
	Steps         []StepEntryV2 `json:"steps"`
}

func (RecipeV2) JSONSchemaExtend(s *jsonschema.Schema) {
	if p, ok := s.Properties.Get("schemaVersion"); ok {
		p.Enum = []any{2}
	}
}

// StepEntryV2 is one requested step.
type StepEntryV2 struct {
	ID      string         `json:"id" jsonschema:"minLength=1"`
	Enabled *bool          `json:"enabled,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

func (StepEntryV2) JSONSchemaExtend(s *jsonschema.Schema) { defaultEnabled(s) }

// SettingsV2 adds trace configuration to the run settings.
type SettingsV2 struct {
	env.Settings
	Trace *trace.Config `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// RunRequestV1 is the legacy run request format. Steps may repeat an id when
// their instance ids differ.
type RunRequestV1 struct {
	Recipe   RecipeV1     `json:"recipe"`
	Settings env.Settings `json:"settings"`
}

// RecipeV1 is the legacy recipe section.
type RecipeV1 struct {
	SchemaVersion int            `json:"schemaVersion"`
	ID            string         `json:"id,omitempty"`
	Steps         []StepEntryV1  `json:"steps"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func (RecipeV1) JSONSchemaExtend(s *jsonschema.Schema) {
	if p, ok := s.Properties.Get("schemaVersion"); ok {
		p.Enum = []any{1}
	}
}

// StepEntryV1 is one legacy step entry.
type StepEntryV1 struct {
	ID         string            `json:"id" jsonschema:"minLength=1"`
	InstanceID string            `json:"instanceId,omitempty" jsonschema:"minLength=1"`
	Enabled    *bool             `json:"enabled,omitempty"`
	Config     map[string]any    `json:"config,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

func (StepEntryV1) JSONSchemaExtend(s *jsonschema.Schema) { defaultEnabled(s) }

func defaultEnabled(s *jsonschema.Schema) {
	if p, ok := s.Properties.Get("enabled"); ok {
		p.Default = true
	}
}

func (e StepEntryV2) enabled() bool { return e.Enabled == nil || *e.Enabled }
func (e StepEntryV1) enabled() bool { return e.Enabled == nil || *e.Enabled }

// nodeID is the instance id when set, else the step id.
func (e StepEntryV1) nodeID() string {
	if e.InstanceID != "" {
		return e.InstanceID
	}
	return e.ID
}
