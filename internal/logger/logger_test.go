package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextFiltersByLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	log, err := New(Options{Level: "warn", Output: buf})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "file", "a.txt")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "file=a.txt")
}

func TestNew_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	log, err := New(Options{Level: "debug", Format: "json", Output: buf})
	require.NoError(t, err)

	log.Debug("message", "trace_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "message", entry["msg"])
	assert.Equal(t, "abc", entry["trace_id"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
