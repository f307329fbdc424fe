package trace

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates trace event kinds.
type Kind string

const (
	KindRunStart   Kind = "run.start"
	KindRunFinish  Kind = "run.finish"
	KindStepStart  Kind = "step.start"
	KindStepFinish Kind = "step.finish"
	KindStepEvent  Kind = "step.event"
)

// Event is a single trace record.
type Event struct {
	Timestamp       int64    `json:"timestamp"` // unix milliseconds
	RunID           string   `json:"runId"`
	PlanFingerprint string   `json:"planFingerprint"`
	Kind            Kind     `json:"kind"`
	StepID          string   `json:"stepId,omitempty"`
	NodeID          string   `json:"nodeId,omitempty"`
	Phase           string   `json:"phase,omitempty"`
	DurationMs      *float64 `json:"durationMs,omitempty"`
	Success         *bool    `json:"success,omitempty"`
	Error           string   `json:"error,omitempty"`
	Data            any      `json:"data,omitempty"`
}

// Sink receives trace events. Implementations may panic; sessions drop the
// event and carry on.
type Sink interface {
	Emit(Event)
}

// StepMeta identifies the step an event belongs to.
type StepMeta struct {
	StepID string
	NodeID string
	Phase  string
}

// Options configures a session.
type Options struct {
	RunID           string // random UUID when empty
	PlanFingerprint string
	Config          *Config
	Sink            Sink
	Now             func() time.Time
}

// Session emits events for one run. The zero value and sessions created
// without a sink or with tracing disabled emit nothing.
type Session struct {
	enabled     bool
	runID       string
	fingerprint string
	config      *Config
	sink        Sink
	now         func() time.Time
}

// NewSession creates a session.
func NewSession(opts Options) *Session {
	if opts.Sink == nil || !opts.Config.IsEnabled() {
		return &Session{}
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		enabled:     true,
		runID:       runID,
		fingerprint: opts.PlanFingerprint,
		config:      opts.Config,
		sink:        opts.Sink,
		now:         now,
	}
}

// Enabled reports whether the session emits anything at all.
func (s *Session) Enabled() bool { return s != nil && s.enabled }

// RunID returns the session's run id, empty for a no-op session.
func (s *Session) RunID() string {
	if !s.Enabled() {
		return ""
	}
	return s.runID
}

// Level returns the effective level for a step.
func (s *Session) Level(stepID string) Level {
	if !s.Enabled() {
		return LevelOff
	}
	return ResolveLevel(s.config, stepID)
}

// EmitRunStart records the start of a run.
func (s *Session) EmitRunStart(data any) {
	if !s.Enabled() {
		return
	}
	e := s.event(KindRunStart, StepMeta{})
	e.Data = data
	s.emit(e)
}

// EmitRunFinish records the end of a run. A non-nil err marks it failed.
func (s *Session) EmitRunFinish(err error) {
	if !s.Enabled() {
		return
	}
	e := s.event(KindRunFinish, StepMeta{})
	setOutcome(&e, err)
	s.emit(e)
}

// EmitStepStart records the start of a step unless its level is off.
func (s *Session) EmitStepStart(meta StepMeta) {
	if s.Level(meta.StepID) == LevelOff {
		return
	}
	s.emit(s.event(KindStepStart, meta))
}

// EmitStepFinish records the end of a step unless its level is off.
func (s *Session) EmitStepFinish(meta StepMeta, d time.Duration, err error) {
	if s.Level(meta.StepID) == LevelOff {
		return
	}
	e := s.event(KindStepFinish, meta)
	ms := float64(d) / float64(time.Millisecond)
	e.DurationMs = &ms
	setOutcome(&e, err)
	s.emit(e)
}

// StepScope returns a scope for emitting events from inside a step.
func (s *Session) StepScope(meta StepMeta) *StepScope {
	return &StepScope{session: s, meta: meta, level: s.Level(meta.StepID)}
}

func (s *Session) event(kind Kind, meta StepMeta) Event {
	return Event{
		Timestamp:       s.now().UnixMilli(),
		RunID:           s.runID,
		PlanFingerprint: s.fingerprint,
		Kind:            kind,
		StepID:          meta.StepID,
		NodeID:          meta.NodeID,
		Phase:           meta.Phase,
	}
}

func (s *Session) emit(e Event) {
	defer func() { _ = recover() }()
	s.sink.Emit(e)
}

func setOutcome(e *Event, err error) {
	ok := err == nil
	e.Success = &ok
	if err != nil {
		e.Error = err.Error()
	}
}

// StepScope emits step.event records for one step.
type StepScope struct {
	session *Session
	meta    StepMeta
	level   Level
}

// Verbose reports whether Event calls will be recorded.
func (sc *StepScope) Verbose() bool { return sc.level == LevelVerbose }

// Event records payload when the step is traced verbosely. A payload of type
// func() any is only called in that case.
func (sc *StepScope) Event(payload any) {
	if !sc.Verbose() {
		return
	}
	if thunk, ok := payload.(func() any); ok {
		payload = safeCall(thunk)
	}
	e := sc.session.event(KindStepEvent, sc.meta)
	e.Data = payload
	sc.session.emit(e)
}

func safeCall(fn func() any) (v any) {
	defer func() {
		if p := recover(); p != nil {
			v = nil
		}
	}()
	return fn()
}
