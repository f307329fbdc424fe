package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans events out to several sinks. A panicking sink does not stop
// delivery to the others.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			emitSafely(s, e)
		}
	}
}

func emitSafely(s Sink, e Event) {
	defer func() { _ = recover() }()
	s.Emit(e)
}

// ConsoleSink logs each event through zap.
type ConsoleSink struct {
	log *zap.Logger
}

// NewConsoleSink returns a sink logging at info level on l.
func NewConsoleSink(l *zap.Logger) *ConsoleSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &ConsoleSink{log: l.Named("trace")}
}

func (c *ConsoleSink) Emit(e Event) {
	fields := []zap.Field{
		zap.String("runId", e.RunID),
		zap.String("planFingerprint", e.PlanFingerprint),
		zap.Int64("timestamp", e.Timestamp),
	}
	if e.StepID != "" {
		fields = append(fields, zap.String("stepId", e.StepID))
	}
	if e.NodeID != "" {
		fields = append(fields, zap.String("nodeId", e.NodeID))
	}
	if e.Phase != "" {
		fields = append(fields, zap.String("phase", e.Phase))
	}
	if e.DurationMs != nil {
		fields = append(fields, zap.Float64("durationMs", *e.DurationMs))
	}
	if e.Success != nil {
		fields = append(fields, zap.Bool("success", *e.Success))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if e.Data != nil {
		fields = append(fields, zap.Any("data", e.Data))
	}
	c.log.Info(string(e.Kind), fields...)
}

// JSONLSink appends one JSON object per event to a stream.
type JSONLSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	err    error
}

// NewJSONLSink writes events to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

// NewFileSink appends events to the JSONL file at path.
func NewFileSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	s := NewJSONLSink(f)
	s.closer = f
	return s, nil
}

// Emit writes e. The first write error is kept and reported by Err; later
// events are dropped.
func (s *JSONLSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if err := s.enc.Encode(e); err != nil {
		s.err = fmt.Errorf("write trace event: %w", err)
	}
}

// Err returns the first write error.
func (s *JSONLSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the underlying file, if the sink owns one.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
