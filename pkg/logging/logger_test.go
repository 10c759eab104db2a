package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelWarn, false)

	logger.Info("session", "hidden")
	logger.Warn("session", "shown", map[string]interface{}{"b": 2, "a": 1})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] session: shown [a=1 b=2]")
}

func TestStructuredOutputIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug, true)

	logger.Info("session", `quoted "message"`, map[string]interface{}{"address": "10.0.0.5:9100"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, `quoted "message"`, entry["message"])
	assert.Equal(t, "10.0.0.5:9100", entry["address"])
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ampd.log")

	logger, err := NewLogger(Config{Level: "debug", File: path, MaxSize: 1})
	require.NoError(t, err)
	defer logger.Close()

	assert.Nil(t, logger.consoleLogger, "console should stay off when a file is configured")
	logger.Debugf("test", "written to %s", "file")
}
