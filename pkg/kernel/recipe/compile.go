package recipe

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ormasoftchile/mapgen/pkg/kernel/env"
	"github.com/ormasoftchile/mapgen/pkg/kernel/op"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
	"github.com/ormasoftchile/mapgen/pkg/kernel/stage"
	"github.com/ormasoftchile/mapgen/pkg/kernel/step"
)

// Compiler runs recipe compiles. It owns a validator whose schema cache lives
// as long as the compiler; it is safe for concurrent use.
type Compiler struct {
	log       *zap.Logger
	validator *schema.Validator
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

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{log: zap.NewNop(), validator: schema.NewValidator()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile is a one-shot compile with a fresh compiler.
func Compile(in Input) (CompiledConfig, error) {
	return NewCompiler().Compile(in)
}

// compileRun holds the state of one Compile call.
type compileRun struct {
	c        *Compiler
	in       Input
	errs     []ErrorItem
	compiled CompiledConfig
}

func (r *compileRun) add(item ErrorItem) { r.errs = append(r.errs, item) }

func (r *compileRun) addIssues(issues []schema.Issue, stageID, stepID string) {
	for _, is := range issues {
		r.add(ErrorItem{
			Code:    CodeConfigInvalid,
			Path:    is.Path,
			Message: is.Message,
			StageID: stageID,
			StepID:  stepID,
		})
	}
}

// Compile processes every stage and step to completion and returns either the
// full compiled config or a *CompileError listing every problem found.
func (c *Compiler) Compile(in Input) (CompiledConfig, error) {
	if in.Recipe == nil {
		return nil, errors.New("recipe compile: no recipe definition")
	}
	r := &compileRun{c: c, in: in, compiled: CompiledConfig{}}

	r.checkStageKeys()
	for _, st := range in.Recipe.Stages {
		r.compileStage(st)
	}

	if len(r.errs) > 0 {
		c.log.Warn("recipe compile failed",
			zap.String("recipe", in.Recipe.ID),
			zap.Int("errors", len(r.errs)))
		return nil, &CompileError{Errors: r.errs}
	}
	c.log.Debug("recipe compiled",
		zap.String("recipe", in.Recipe.ID),
		zap.Int("stages", len(r.compiled)))
	return r.compiled, nil
}

// checkStageKeys reports config keys that name no stage.
func (r *compileRun) checkStageKeys() {
	keys := make([]string, 0, len(r.in.Config))
	for k := range r.in.Config {
		if _, ok := r.in.Recipe.Stage(k); !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.add(ErrorItem{Code: CodeConfigInvalid, Path: schema.Join("/", k), Message: "Unknown key"})
	}
}

func (r *compileRun) compileStage(st *stage.Stage) {
	log := r.c.log.With(zap.String("stage", st.ID()))
	path := schema.Join("/", st.ID())

	normalized, issues := r.c.validator.NormalizeStrict(st.Surface(), r.in.Config[st.ID()], path)
	if len(issues) > 0 {
		log.Debug("stage config invalid", zap.Int("issues", len(issues)))
		r.addIssues(issues, st.ID(), "")
		return
	}
	stageConfig, _ := schema.AsObject(normalized)

	var knobs, rawSteps map[string]any
	err := protect(func() error {
		var err error
		knobs, rawSteps, err = st.ToInternal(r.in.Env, stageConfig)
		return err
	})
	if err != nil {
		r.add(ErrorItem{
			Code:    CodeStageCompileFailed,
			Path:    path,
			Message: err.Error(),
			StageID: st.ID(),
		})
		return
	}

	ctx := env.CompileContext{Env: r.in.Env, Knobs: knobs}
	for _, m := range st.Steps() {
		if cfg, ok := r.compileStep(st.ID(), m, rawSteps[m.ID], ctx); ok {
			if r.compiled[st.ID()] == nil {
				r.compiled[st.ID()] = map[string]map[string]any{}
			}
			r.compiled[st.ID()][m.ID] = cfg
		}
	}
	log.Debug("stage compiled", zap.Int("steps", len(r.compiled[st.ID()])))
}

func (r *compileRun) compileStep(stageID string, m *step.Module, raw any, ctx env.CompileContext) (map[string]any, bool) {
	path := schema.Join("/", stageID, m.ID)
	v := r.c.validator

	cfg, ok := prefillOpDefaults(m.Contract, raw)
	if !ok {
		r.add(ErrorItem{
			Code:    CodeConfigInvalid,
			Path:    path,
			Message: fmt.Sprintf("expected object, got %T", raw),
			StageID: stageID,
			StepID:  m.ID,
		})
		return nil, false
	}

	normalized, issues := v.NormalizeStrict(m.Schema, cfg, path)
	if len(issues) > 0 {
		r.addIssues(issues, stageID, m.ID)
		return nil, false
	}
	cfg, _ = schema.AsObject(normalized)

	if m.Normalize != nil {
		var out map[string]any
		err := protect(func() error {
			var err error
			out, err = m.Normalize(schema.Clone(cfg).(map[string]any), ctx)
			return err
		})
		if err != nil {
			r.add(ErrorItem{
				Code:    CodeStepNormalizeFailed,
				Path:    path,
				Message: err.Error(),
				StageID: stageID,
				StepID:  m.ID,
			})
			return nil, false
		}
		redefaulted := v.Default(m.Schema, schema.Clone(out))
		if issues := v.ValidateStrict(m.Schema, redefaulted, path); len(issues) > 0 {
			r.addIssues(issues, stageID, m.ID)
			r.add(ErrorItem{
				Code:    CodeNormalizeNotShapeStable,
				Path:    path,
				Message: "step normalize changed the shape of its config",
				StageID: stageID,
				StepID:  m.ID,
			})
			return nil, false
		}
		cfg, _ = schema.AsObject(redefaulted)
	}

	if len(m.Ops) > 0 {
		cfg = r.normalizeOps(stageID, m, cfg, ctx)
		// an op normalize may drop keys its envelope defaults
		cfg, _ = schema.AsObject(v.Default(m.Schema, cfg))
	}

	if issues := v.ValidateStrict(m.Schema, cfg, path); len(issues) > 0 {
		r.addIssues(issues, stageID, m.ID)
		return nil, false
	}
	return cfg, true
}

// normalizeOps runs each bound op's compile-time normalize over its envelope
// in the step config. Failures are recorded per op key.
func (r *compileRun) normalizeOps(stageID string, m *step.Module, cfg map[string]any, ctx env.CompileContext) map[string]any {
	bound, err := op.BindCompileOps(m.OpRefs(), r.in.Ops)
	var missing *op.MissingError
	if errors.As(err, &missing) {
		for _, miss := range missing.Missing {
			r.add(ErrorItem{
				Code:    CodeOpMissing,
				Path:    schema.Join("/", stageID, m.ID, miss.Key),
				Message: fmt.Sprintf("op missing: %s", miss.ID),
				StageID: stageID,
				StepID:  m.ID,
				OpKey:   miss.Key,
				OpID:    miss.ID,
			})
		}
	}

	keys := make([]string, 0, len(bound))
	for k := range bound {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		o := bound[key]
		envelope, ok := schema.AsObject(cfg[key])
		if !ok || !o.HasNormalize() {
			continue
		}
		var out map[string]any
		err := protect(func() error {
			var err error
			out, err = o.Normalize(schema.Clone(envelope).(map[string]any), ctx)
			return err
		})
		if err != nil {
			r.add(ErrorItem{
				Code:    CodeOpNormalizeFailed,
				Path:    schema.Join("/", stageID, m.ID, key),
				Message: err.Error(),
				StageID: stageID,
				StepID:  m.ID,
				OpKey:   key,
				OpID:    o.ID(),
			})
			continue
		}
		cfg[key] = schema.Clone(out)
	}
	return cfg
}

// prefillOpDefaults copies raw and fills each absent op key with that op's
// default envelope. A missing raw config is treated as an empty object.
func prefillOpDefaults(c *step.Contract, raw any) (map[string]any, bool) {
	if raw == nil {
		raw = map[string]any{}
	}
	obj, ok := schema.AsObject(schema.Clone(raw))
	if !ok {
		return nil, false
	}
	for key, e := range c.Envelopes {
		if _, present := obj[key]; !present {
			obj[key] = e.DefaultValue()
		}
	}
	return obj, true
}

// protect runs fn, converting a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return fn()
}
