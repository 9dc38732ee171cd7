package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-output", "discard"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimulate_SteadyTrack(t *testing.T) {
	out, err := execute(t, "simulate", "--duration", "3s")
	require.NoError(t, err)

	assert.Contains(t, out, "frame=1 beat=0 valid=true")
	assert.Contains(t, out, "beat=5 valid=true")
	assert.Contains(t, out, "pretrigger action=4 every_n=4 offset=0 lead=1.00")
	assert.NotContains(t, out, "reset reason=")
	assert.Contains(t, out, "resets=0")
	assert.NotContains(t, out, "valid=false")
}

func TestSimulate_StallForcesSevereReset(t *testing.T) {
	out, err := execute(t, "simulate", "--duration", "4s", "--stall", "2s:350ms")
	require.NoError(t, err)

	assert.Contains(t, out, "reset reason=severe_deviation next=0")
	assert.Contains(t, out, "resets=1 last_reset=severe_deviation")
	assert.Contains(t, out, "anomaly severe_deviation=1")
}

func TestSimulate_LoopKeepsCadence(t *testing.T) {
	out, err := execute(t, "simulate", "--duration", "6s", "--loop", "4s", "--quiet")
	require.NoError(t, err)

	assert.NotContains(t, out, "frame=", "quiet prints the summary only")
	assert.Contains(t, out, "resets=0")
}

func TestSimulate_TempoChangeKeepsTiming(t *testing.T) {
	for _, tempo := range []string{"5s:100", "5s:150"} {
		out, err := execute(t, "simulate", "--duration", "10s", "--tempo", tempo)
		require.NoError(t, err)

		assert.Contains(t, out, "resets=0", tempo)
		assert.NotContains(t, out, "valid=false", tempo)
		assert.NotContains(t, out, "reset reason=", tempo)
	}
}

func TestSimulate_JSONSummary(t *testing.T) {
	out, err := execute(t, "simulate", "--duration", "1s", "--format", "json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "beat", first["event"])
	assert.EqualValues(t, 0, first["beat"])

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &summary))
	assert.Equal(t, "summary", summary["event"])
	assert.EqualValues(t, 60, summary["frames"])
}

func TestSimulate_SandboxActors(t *testing.T) {
	out, err := execute(t, "simulate", "--duration", "2s", "--sandbox", "--quiet")
	require.NoError(t, err)

	assert.Contains(t, out, "actors enemy=2")
	assert.Contains(t, out, "actors turret=1")
	assert.Contains(t, out, "actors trap=1")
}

func TestSimulate_Journal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.db")
	_, err := execute(t, "simulate", "--duration", "1s", "--quiet", "--journal", path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSimulate_BadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"--format", "xml"}},
		{"fps", []string{"--fps", "0"}},
		{"stall without length", []string{"--stall", "2s"}},
		{"seek bad target", []string{"--seek", "2s:soon"}},
		{"tempo bad bpm", []string{"--tempo", "1s:fast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"simulate"}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestParseScript_OrdersByTime(t *testing.T) {
	steps, err := parseScript(
		[]string{"3s:500ms"},
		[]string{"1s:0s"},
		[]string{"3s:90"},
	)
	require.NoError(t, err)

	want := []scriptStep{
		{at: time.Second, kind: stepSeek, value: 0},
		{at: 3 * time.Second, kind: stepStall},
		{at: 3 * time.Second, kind: stepTempo, value: 90},
		{at: 3500 * time.Millisecond, kind: stepUnstall},
	}
	assert.Equal(t, want, steps)
}

func TestValidate_PrintsSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beatkeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clock:\n  bpm: 96\n"), 0o644))

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "clock: bpm=96.0")
	assert.Contains(t, out, "pretrigger: ")
}

func TestValidate_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beatkeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clock:\n  bpm: 5000\n"), 0o644))

	_, err := execute(t, "validate", path)
	assert.Error(t, err)
}
