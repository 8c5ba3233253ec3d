package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewLoggerWithWriter_Formats(t *testing.T) {
	var text, js bytes.Buffer

	NewLoggerWithWriter(slog.LevelInfo, "text", &text).Info("stage completed", "stage", "users.Get")
	NewLoggerWithWriter(slog.LevelInfo, "JSON", &js).Info("stage completed", "stage", "users.Get")

	assert.Contains(t, text.String(), "stage=users.Get")
	assert.Contains(t, js.String(), `"msg":"stage completed"`)
	assert.Contains(t, js.String(), `"stage":"users.Get"`)
}

func Test_NewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func Test_ParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}
