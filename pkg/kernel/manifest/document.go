package manifest

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// LoadDocumentFile reads a JSON or YAML document into the kernel value model.
func LoadDocumentFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return LoadDocument(f)
}

// LoadDocument decodes one JSON or YAML document. An empty document is nil.
func LoadDocument(r io.Reader) (any, error) {
	var v any
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return schema.Clone(v), nil
}

// RecipeConfigFile is the on-disk input of a recipe compile: the settings to
// compile for and the stage-keyed config.
type RecipeConfigFile struct {
	Env    env.Settings   `yaml:"env"`
	Config map[string]any `yaml:"config"`
}

// LoadRecipeConfigFile reads a recipe config file strictly.
func LoadRecipeConfigFile(path string) (*RecipeConfigFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recipe config: %w", err)
	}
	defer f.Close()

	var rc RecipeConfigFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&rc); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	if rc.Config != nil {
		rc.Config, _ = schema.Clone(rc.Config).(map[string]any)
	}
	return &rc, nil
}
