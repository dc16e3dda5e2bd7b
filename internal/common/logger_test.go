package common

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name          string
		debugMode     bool
		expectedDebug bool
	}{
		{name: "debug mode enabled", debugMode: true, expectedDebug: true},
		{name: "debug mode disabled", debugMode: false, expectedDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.debugMode)
			if logger.debug != tt.expectedDebug {
				t.Errorf("Expected debug mode to be %v, got %v", tt.expectedDebug, logger.debug)
			}
			if !strings.HasPrefix(logger.RequestID(), "req_") {
				t.Errorf("Expected generated request id, got %q", logger.RequestID())
			}

			var _ Logger = logger
		})
	}
}

func TestStandardLogger_DebugRespectsMode(t *testing.T) {
	var quiet bytes.Buffer
	NewLoggerWithOutput(&quiet, false, false).Debug("hidden %s", "value")
	assert.Empty(t, quiet.String())

	var loud bytes.Buffer
	NewLoggerWithOutput(&loud, true, false).Debug("shown %s", "value")
	assert.Contains(t, loud.String(), "shown value")
}

func TestStandardLogger_JSONCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, false, true).WithRequestID("abc123")

	logger.Info("created pull request #%d", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "created pull request #7", record["msg"])
	assert.Equal(t, "abc123", record["request_id"])
	assert.Equal(t, "INFO", record["level"])
}

func TestStandardLogger_WithEmptyRequestIDGeneratesOne(t *testing.T) {
	logger := NewLogger(false).WithRequestID("")
	assert.True(t, strings.HasPrefix(logger.RequestID(), "req_"))
}

func TestNopLoggerImplementsLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	logger.Debug("x")
	logger.Info("y")
	logger.Error("z")
}
