package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "svc", func(context.Context) string { return "trace-1" })

	log.Debug(context.Background(), "dropped")
	log.Info(context.Background(), "page fetched", "page", 3)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "page fetched", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "svc", lines[0]["service"])
	assert.Equal(t, "trace-1", lines[0]["trace_id"])
	assert.EqualValues(t, 3, lines[0]["page"])
	assert.Contains(t, lines[0]["file"], "logger_test.go")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "svc", nil).With("component", "enumerator")

	log.Warn(context.Background(), "slow page")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "enumerator", lines[0]["component"])
	assert.NotContains(t, lines[0], "trace_id")
}

func TestLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	var got []Record
	capture := func(_ context.Context, r Record) { got = append(got, r) }

	log := NewWithMetadata(&buf, LevelDebug, "svc", nil,
		Events{Error: capture, Warn: capture},
		map[string]string{"app": "lister"},
	)

	log.Info(context.Background(), "ignored")
	log.Warn(context.Background(), "reporter failed", "page", 1)
	log.Error(context.Background(), "fetch failed", "status", 500)

	require.Len(t, got, 2)
	assert.Equal(t, LevelWarn, got[0].Level)
	assert.Equal(t, "fetch failed", got[1].Message)
	assert.Equal(t, LevelError, got[1].Level)
	assert.EqualValues(t, 500, got[1].Attributes["status"])

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, "lister", l["app"])
	}
}

func TestLoggerContext_Add(t *testing.T) {
	var buf bytes.Buffer
	lc := NewLoggerContext(New(&buf, LevelDebug, "svc", nil))

	lc.Info(context.Background(), "first")
	lc.Add("run_id", "r-1")
	lc.Debug(context.Background(), "second", "page", 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "run_id")
	assert.Equal(t, "r-1", lines[1]["run_id"])
	assert.EqualValues(t, 2, lines[1]["page"])
	assert.Contains(t, lines[1]["file"], "logger_test.go")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "", want: LevelInfo},
		{in: "chatty", want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewStdLogger(t *testing.T) {
	var buf bytes.Buffer
	std := NewStdLogger(New(&buf, LevelInfo, "svc", nil), LevelWarn)

	std.Printf("maxprocs: %d", 4)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "maxprocs: 4", lines[0]["msg"])
	assert.Equal(t, "WARN", lines[0]["level"])
}

func TestNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Noop().Error(context.Background(), "discarded", "k", "v")
	})
}
