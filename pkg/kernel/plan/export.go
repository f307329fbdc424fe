package plan

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{DoNotReference: true, Anonymous: true}
}

// requestSchema reflects the validation schema for a request version.
func requestSchema(version int) (*jsonschema.Schema, error) {
	r := newReflector()
	switch version {
	case 1:
		return r.Reflect(&RunRequestV1{}), nil
	case 2:
		return r.Reflect(&RunRequestV2{}), nil
	}
	return nil, fmt.Errorf("unsupported run request schema version %d", version)
}

// GenerateRunRequestJSONSchema produces the Draft 2020-12 schema document for
// a run request version.
func GenerateRunRequestJSONSchema(version int) ([]byte, error) {
	s, err := requestSchema(version)
	if err != nil {
		return nil, err
	}
	s.ID = jsonschema.ID(fmt.Sprintf("https://github.com/ormasoftchile/mapgen/schemas/run-request-v%d.json", version))
	s.Title = fmt.Sprintf("Run request v%d", version)
	s.Description = "Map generation run request (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run request schema: %w", err)
	}
	return data, nil
}

// GeneratePlanJSONSchema produces the schema document for execution plans.
func GeneratePlanJSONSchema() ([]byte, error) {
	s := newReflector().Reflect(&Plan{})
	s.ID = "https://github.com/ormasoftchile/mapgen/schemas/execution-plan.json"
	s.Title = "Execution plan"
	s.Description = "Compiled map generation execution plan (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plan schema: %w", err)
	}
	return data, nil
}
