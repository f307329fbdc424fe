package plan

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// Compiler builds execution plans. Request schemas are reflected once per
// compiler and validated through its own schema cache.
type Compiler struct {
	log       *zap.Logger
	validator *schema.Validator

	mu      sync.Mutex
	schemas map[int]*schema.Schema
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the compiler's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCompiler creates a plan compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		log:       zap.NewNop(),
		validator: schema.NewValidator(),
		schemas:   map[int]*schema.Schema{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CompileV2 compiles a v2 request with a fresh compiler.
func CompileV2(request any, reg Registry) (*Plan, error) {
	return NewCompiler().CompileV2(request, reg)
}

// CompileV1 compiles a v1 request with a fresh compiler.
func CompileV1(request any, reg Registry) (*Plan, error) {
	return NewCompiler().CompileV1(request, reg)
}

func (c *Compiler) requestSchema(version int) (*schema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schemas[version]; ok {
		return s, nil
	}
	s, err := requestSchema(version)
	if err != nil {
		return nil, err
	}
	c.schemas[version] = s
	return s, nil
}

// SchemaVersion reads recipe.schemaVersion from a request.
func SchemaVersion(request any) (int, error) {
	value, err := schema.ToValue(request)
	if err != nil {
		return 0, err
	}
	obj, _ := schema.AsObject(value)
	rec, _ := schema.AsObject(obj["recipe"])
	if v, ok := rec["schemaVersion"].(float64); ok {
		return int(v), nil
	}
	return 0, &CompileError{Errors: []ErrorItem{{
		Code:    CodeRunRequestInvalid,
		Path:    "/recipe/schemaVersion",
		Message: "schemaVersion is required",
	}}}
}

// Compile dispatches on recipe.schemaVersion.
func (c *Compiler) Compile(request any, reg Registry) (*Plan, error) {
	version, err := SchemaVersion(request)
	if err != nil {
		return nil, err
	}
	switch version {
	case 1:
		return c.CompileV1(request, reg)
	case 2:
		return c.CompileV2(request, reg)
	}
	return nil, &CompileError{Errors: []ErrorItem{{
		Code:    CodeRunRequestInvalid,
		Path:    "/recipe/schemaVersion",
		Message: fmt.Sprintf("unsupported schemaVersion %d", version),
	}}}
}

// validateRequest normalizes request against the version's schema and decodes
// it into dst. Any issue aborts the compile.
func (c *Compiler) validateRequest(version int, request any, dst any) error {
	s, err := c.requestSchema(version)
	if err != nil {
		return err
	}
	value, err := schema.ToValue(request)
	if err != nil {
		return &CompileError{Errors: []ErrorItem{{Code: CodeRunRequestInvalid, Path: "/", Message: err.Error()}}}
	}
	normalized, issues := c.validator.NormalizeStrict(s, value, "/")
	if len(issues) > 0 {
		items := make([]ErrorItem, len(issues))
		for i, is := range issues {
			items[i] = ErrorItem{Code: CodeRunRequestInvalid, Path: pathOrRoot(is.Path), Message: is.Message}
		}
		return &CompileError{Errors: items}
	}
	if err := schema.Decode(normalized, dst); err != nil {
		return &CompileError{Errors: []ErrorItem{{Code: CodeRunRequestInvalid, Path: "/", Message: err.Error()}}}
	}
	return nil
}

func pathOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// CompileV2 compiles a v2 run request. Step ids must be unique among enabled
// entries.
func (c *Compiler) CompileV2(request any, reg Registry) (*Plan, error) {
	var req RunRequestV2
	if err := c.validateRequest(2, request, &req); err != nil {
		return nil, err
	}

	b := c.newBuilder(reg)
	seen := map[string]bool{}
	for i, entry := range req.Recipe.Steps {
		path := schema.Index("/recipe/steps", i)
		if !entry.enabled() {
			c.log.Debug("step disabled", zap.String("step", entry.ID))
			continue
		}
		if seen[entry.ID] {
			b.add(ErrorItem{
				Code:    CodeRunRequestInvalid,
				Path:    schema.Join(path, "id"),
				Message: fmt.Sprintf("duplicate step id %q", entry.ID),
				StepID:  entry.ID,
			})
			continue
		}
		seen[entry.ID] = true
		b.node(path, entry.ID, "", entry.Config, nil)
	}

	if err := b.err(); err != nil {
		return nil, err
	}
	return &Plan{
		RecipeSchemaVersion: 2,
		RecipeID:            req.Recipe.ID,
		Settings:            req.Settings,
		Nodes:               b.nodes,
	}, nil
}

// CompileV1 compiles a legacy run request. Node ids default to the step id
// and must be unique.
func (c *Compiler) CompileV1(request any, reg Registry) (*Plan, error) {
	var req RunRequestV1
	if err := c.validateRequest(1, request, &req); err != nil {
		return nil, err
	}

	b := c.newBuilder(reg)
	seen := map[string]bool{}
	for i, entry := range req.Recipe.Steps {
		path := schema.Index("/recipe/steps", i)
		if !entry.enabled() {
			c.log.Debug("step disabled", zap.String("step", entry.ID))
			continue
		}
		nodeID := entry.nodeID()
		if seen[nodeID] {
			b.add(ErrorItem{
				Code:    CodeRunRequestInvalid,
				Path:    path,
				Message: fmt.Sprintf("duplicate node id %q", nodeID),
				StepID:  entry.ID,
				NodeID:  nodeID,
			})
			continue
		}
		seen[nodeID] = true
		b.node(path, entry.ID, nodeID, entry.Config, entry.Labels)
	}

	if err := b.err(); err != nil {
		return nil, err
	}
	return &Plan{
		RecipeSchemaVersion: 1,
		RecipeID:            req.Recipe.ID,
		Settings:            SettingsV2{Settings: req.Settings},
		Nodes:               b.nodes,
		Extensions:          req.Recipe.Extensions,
	}, nil
}

// builder accumulates nodes and errors for one compile.
type builder struct {
	c     *Compiler
	reg   Registry
	nodes []Node
	errs  []ErrorItem
}

func (c *Compiler) newBuilder(reg Registry) *builder {
	return &builder{c: c, reg: reg, nodes: []Node{}}
}

func (b *builder) add(item ErrorItem) { b.errs = append(b.errs, item) }

func (b *builder) err() error {
	if len(b.errs) == 0 {
		return nil
	}
	b.c.log.Warn("execution plan compile failed", zap.Int("errors", len(b.errs)))
	return &CompileError{Errors: b.errs}
}

// node resolves one enabled entry against the registry. Step configs are
// default-filled, cleaned and validated; an absent config starts as {}.
func (b *builder) node(path, stepID, nodeID string, config map[string]any, labels map[string]string) {
	if b.reg == nil || !b.reg.Has(stepID) {
		b.add(ErrorItem{
			Code:    CodeStepUnknown,
			Path:    schema.Join(path, "id"),
			Message: fmt.Sprintf("unknown step %q", stepID),
			StepID:  stepID,
			NodeID:  nodeID,
		})
		return
	}
	def := b.reg.Get(stepID)

	var raw any = map[string]any{}
	if config != nil {
		raw = config
	}
	resolved := schema.Clone(raw)
	if def.ConfigSchema != nil {
		normalized, issues := b.c.validator.NormalizeStrict(def.ConfigSchema, raw, schema.Join(path, "config"))
		if len(issues) > 0 {
			for _, is := range issues {
				b.add(ErrorItem{
					Code:    CodeStepConfigInvalid,
					Path:    is.Path,
					Message: is.Message,
					StepID:  stepID,
					NodeID:  nodeID,
				})
			}
			return
		}
		resolved = normalized
	}
	cfg, _ := schema.AsObject(resolved)

	b.c.log.Debug("plan node", zap.String("step", stepID), zap.String("node", nodeID))
	b.nodes = append(b.nodes, Node{
		StepID:   stepID,
		NodeID:   nodeID,
		Phase:    def.Phase,
		Requires: nonNil(def.Requires),
		Provides: nonNil(def.Provides),
		Config:   cfg,
		Labels:   labels,
	})
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
