package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: FormatJSON, Writer: &buf}
	return New(cfg, "tailpipe"), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	require.NotNil(t, l)
	assert.Equal(t, "test-svc", l.service)
}

func TestNew_JSONFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithComponent("source").Info("line delivered", Fields(FieldOffset, 42, FieldRunID, "r-1"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "line delivered", lines[0]["message"])
	assert.Equal(t, "source", lines[0][FieldComponent])
	assert.Equal(t, "tailpipe", lines[0]["service"])
	assert.EqualValues(t, 42, lines[0][FieldOffset])
	assert.Equal(t, "r-1", lines[0][FieldRunID])
}

func TestNew_LevelFilters(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSONLogger(t, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	assert.Len(t, decodeLines(t, buf), 1)
}

func TestWithFieldsAndError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithFields(Fields(FieldRoute, "python")).WithError(errors.New("boom")).Error("route failed")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "python", lines[0][FieldRoute])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: FormatConsole, NoColor: true, Writer: &buf}, "tailpipe")
	l.Info("pipeline running", Fields(FieldState, "running"))

	out := buf.String()
	assert.Contains(t, out, "[TAI][INF]")
	assert.Contains(t, out, "pipeline running")
	assert.Contains(t, out, "state:")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.WithComponent("x").Error("still nothing")
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	l, buf := newJSONLogger(t, "info")
	SetGlobalLogger(l)
	Info("global info")
	Warn("global warn")
	Debug("dropped")
	Error("global error")
	WithComponent("tailer").Info("scoped")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "tailer", lines[3][FieldComponent])
}

func TestRegisterAndGet(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	Register("custom", l)
	t.Cleanup(registry.reset)

	Get("custom").Info("from registry")
	assert.Len(t, decodeLines(t, buf), 1)
}

func TestGetUnregistered(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	l, buf := newJSONLogger(t, "info")
	SetGlobalLogger(l)
	Get("status").Info("hello")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "status", lines[0][FieldComponent])
}

func TestInitResetsRegistry(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	Register("stale", NewNop())
	var buf bytes.Buffer
	Init(&Config{Format: FormatJSON, Writer: &buf}, "tailpipe")

	Get("stale").Info("fresh logger")
	assert.Contains(t, buf.String(), "fresh logger")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.True(t, cfg.Timestamp)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, ""},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, "logging.level"},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, "logging.format"},
		{"bad output", Config{Level: "info", Format: "json", Output: "syslog"}, "logging.output"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "ignored-key-not-string", "dangling")
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "two"}, f)

	ef := ErrorFields("push", errors.New("closed"))
	assert.Equal(t, "push", ef[FieldOperation])
	assert.Equal(t, "closed", ef[FieldError])

	df := DurationFields("drain", 1500*time.Millisecond)
	assert.EqualValues(t, 1500, df[FieldDuration])
}
