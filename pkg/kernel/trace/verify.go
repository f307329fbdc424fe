package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// VerifyResult is the outcome of checking a JSONL trace.
type VerifyResult struct {
	EventCount      int
	Valid           bool
	BrokenAt        int // 1-based event index, -1 if none
	RunID           string
	PlanFingerprint string
	Finished        bool
	Success         bool
	Error           string
}

// VerifyFile checks the trace file at path.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify checks that a trace opens with run.start, that every event carries
// the same run id and plan fingerprint, that nothing follows run.finish, and
// that step events reference a step that started.
func Verify(r io.Reader) (*VerifyResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	res := &VerifyResult{Valid: true, BrokenAt: -1}
	started := map[string]bool{}
	broken := func(msg string, args ...any) *VerifyResult {
		res.Valid = false
		res.BrokenAt = res.EventCount
		res.Error = fmt.Sprintf("event %d: %s", res.EventCount, fmt.Sprintf(msg, args...))
		return res
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.EventCount++

		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return broken("invalid JSON: %v", err), nil
		}
		if res.Finished {
			return broken("%s after run.finish", e.Kind), nil
		}

		if res.EventCount == 1 {
			if e.Kind != KindRunStart {
				return broken("expected run.start, got %s", e.Kind), nil
			}
			res.RunID = e.RunID
			res.PlanFingerprint = e.PlanFingerprint
			continue
		}
		if e.RunID != res.RunID {
			return broken("run id %q does not match %q", e.RunID, res.RunID), nil
		}
		if e.PlanFingerprint != res.PlanFingerprint {
			return broken("plan fingerprint changed"), nil
		}

		key := e.StepID + "\x00" + e.NodeID
		switch e.Kind {
		case KindRunStart:
			return broken("duplicate run.start"), nil
		case KindRunFinish:
			res.Finished = true
			res.Success = e.Success != nil && *e.Success
		case KindStepStart:
			started[key] = true
		case KindStepFinish, KindStepEvent:
			if !started[key] {
				return broken("%s for step %q that never started", e.Kind, e.StepID), nil
			}
		default:
			return broken("unknown kind %q", e.Kind), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return res, nil
}
