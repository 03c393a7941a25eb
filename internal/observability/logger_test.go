// SPDX-License-Identifier: EPL-2.0

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mediakit/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	logger.Info("probed", slog.String("format", "isomp4"))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "probed", parsed["msg"])
	assert.Equal(t, "isomp4", parsed["format"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	logger.Info("probed", slog.String("format", "wav"))

	assert.Contains(t, buf.String(), "msg=probed")
	assert.Contains(t, buf.String(), "format=wav")
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		logLevel    slog.Level
		shouldLog   bool
	}{
		{"debug logs at debug level", "debug", slog.LevelDebug, true},
		{"info does not log debug", "info", slog.LevelDebug, false},
		{"info logs at info level", "info", slog.LevelInfo, true},
		{"warn does not log info", "warn", slog.LevelInfo, false},
		{"warn logs at warn level", "warn", slog.LevelWarn, true},
		{"error does not log warn", "error", slog.LevelWarn, false},
		{"unknown level is info", "loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(config.LoggingConfig{Level: tt.configLevel, Format: "json"}, &buf)
			logger.Log(context.Background(), tt.logLevel, "test")

			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	WithFile(WithComponent(logger, "probe"), "a.mp4").Info("done")

	assert.Contains(t, buf.String(), "component=probe")
	assert.Contains(t, buf.String(), "file=a.mp4")
}
