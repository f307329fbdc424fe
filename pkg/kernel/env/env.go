// Package env holds the run environment shared by every compile phase.
package env

// Settings describes the map a recipe is compiled for.
type Settings struct {
	Seed           int64          `json:"seed"            yaml:"seed"`
	Dimensions     Dimensions     `json:"dimensions"      yaml:"dimensions"`
	LatitudeBounds LatitudeBounds `json:"latitudeBounds"  yaml:"latitudeBounds"`
	Wrap           Wrap           `json:"wrap"            yaml:"wrap"`
	Directionality map[string]any `json:"directionality,omitempty" yaml:"directionality,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"       yaml:"metadata,omitempty"`
}

// Dimensions is the map size in tiles.
type Dimensions struct {
	Width  int `json:"width"  yaml:"width"  jsonschema:"minimum=1"`
	Height int `json:"height" yaml:"height" jsonschema:"minimum=1"`
}

// LatitudeBounds are the latitudes of the top and bottom map rows.
type LatitudeBounds struct {
	TopLatitude    float64 `json:"topLatitude"    yaml:"topLatitude"    jsonschema:"minimum=-90,maximum=90"`
	BottomLatitude float64 `json:"bottomLatitude" yaml:"bottomLatitude" jsonschema:"minimum=-90,maximum=90"`
}

// Wrap controls horizontal and vertical map wrapping.
type Wrap struct {
	WrapX bool `json:"wrapX" yaml:"wrapX"`
	WrapY bool `json:"wrapY" yaml:"wrapY"`
}

// CompileContext is handed to stage, step and op normalization hooks.
// Knobs are the owning stage's compile-time inputs.
type CompileContext struct {
	Env   Settings
	Knobs map[string]any
}

// Value returns the settings in the kernel's JSON value model, for use by
// declarative expressions.
func (s Settings) Value() map[string]any {
	out := map[string]any{
		"seed": float64(s.Seed),
		"dimensions": map[string]any{
			"width":  float64(s.Dimensions.Width),
			"height": float64(s.Dimensions.Height),
		},
		"latitudeBounds": map[string]any{
			"topLatitude":    s.LatitudeBounds.TopLatitude,
			"bottomLatitude": s.LatitudeBounds.BottomLatitude,
		},
		"wrap": map[string]any{
			"wrapX": s.Wrap.WrapX,
			"wrapY": s.Wrap.WrapY,
		},
	}
	if s.Directionality != nil {
		out["directionality"] = s.Directionality
	}
	if s.Metadata != nil {
		out["metadata"] = s.Metadata
	}
	return out
}
