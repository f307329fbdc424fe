package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		valid    bool
		brokenAt int
		errPart  string
	}{
		{
			name: "complete run",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"step.start","runId":"r","planFingerprint":"f","stepId":"a"}`,
				`{"kind":"step.event","runId":"r","planFingerprint":"f","stepId":"a"}`,
				`{"kind":"step.finish","runId":"r","planFingerprint":"f","stepId":"a","success":true}`,
				``,
				`{"kind":"run.finish","runId":"r","planFingerprint":"f","success":true}`,
			},
			valid:    true,
			brokenAt: -1,
		},
		{
			name:     "missing run.start",
			lines:    []string{`{"kind":"step.start","runId":"r","planFingerprint":"f","stepId":"a"}`},
			brokenAt: 1,
			errPart:  "expected run.start",
		},
		{
			name: "run id changes",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"run.finish","runId":"other","planFingerprint":"f"}`,
			},
			brokenAt: 2,
			errPart:  "run id",
		},
		{
			name: "fingerprint changes",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"step.start","runId":"r","planFingerprint":"g","stepId":"a"}`,
			},
			brokenAt: 2,
			errPart:  "fingerprint",
		},
		{
			name: "finish without start",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"step.finish","runId":"r","planFingerprint":"f","stepId":"a"}`,
			},
			brokenAt: 2,
			errPart:  "never started",
		},
		{
			name: "node ids are distinct",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"step.start","runId":"r","planFingerprint":"f","stepId":"a","nodeId":"a-1"}`,
				`{"kind":"step.finish","runId":"r","planFingerprint":"f","stepId":"a","nodeId":"a-2"}`,
			},
			brokenAt: 3,
			errPart:  "never started",
		},
		{
			name: "event after finish",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"run.finish","runId":"r","planFingerprint":"f","success":true}`,
				`{"kind":"step.start","runId":"r","planFingerprint":"f","stepId":"a"}`,
			},
			brokenAt: 3,
			errPart:  "after run.finish",
		},
		{
			name: "duplicate run.start",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
			},
			brokenAt: 2,
			errPart:  "duplicate",
		},
		{
			name: "unknown kind",
			lines: []string{
				`{"kind":"run.start","runId":"r","planFingerprint":"f"}`,
				`{"kind":"step.pause","runId":"r","planFingerprint":"f"}`,
			},
			brokenAt: 2,
			errPart:  "unknown kind",
		},
		{
			name:     "invalid json",
			lines:    []string{`{not json`},
			brokenAt: 1,
			errPart:  "invalid JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Verify(strings.NewReader(strings.Join(tt.lines, "\n")))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.brokenAt, res.BrokenAt)
			if tt.errPart != "" {
				assert.Contains(t, res.Error, tt.errPart)
			}
		})
	}
}

func TestVerify_UnfinishedRun(t *testing.T) {
	res, err := Verify(strings.NewReader(`{"kind":"run.start","runId":"r","planFingerprint":"f"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Finished)
	assert.Equal(t, "r", res.RunID)
}

func TestVerifyFile_Missing(t *testing.T) {
	_, err := VerifyFile("does-not-exist.jsonl")
	assert.Error(t, err)
}
