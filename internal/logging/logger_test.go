package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "TEST")

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	logger.SetLevel(LevelError)
	logger.Warn("warning")
	logger.Error("failure")
	assert.NotContains(t, buf.String(), "warning")
	assert.Contains(t, buf.String(), "failure")

	buf.Reset()
	logger.SetLevel(LevelTrace)
	logger.Trace("very detailed")
	assert.Contains(t, buf.String(), "very detailed")
	assert.Contains(t, buf.String(), "TRC")
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerTo(&buf, "TINYFS")
	child := parent.WithPrefix("FUSE")

	assert.Equal(t, "TINYFS", parent.Prefix())
	assert.Equal(t, "FUSE", child.Prefix())

	child.Info("mounted")
	assert.Contains(t, buf.String(), "component=FUSE")
	assert.NotContains(t, buf.String(), "component=TINYFS")

	// the level is shared in both directions
	child.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, parent.Level())
	assert.True(t, parent.Enabled(LevelDebug))

	parent.SetLevel(LevelWarn)
	assert.False(t, child.Enabled(LevelInfo))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		level LogLevel
		ok    bool
	}{
		{"error", LevelError, true},
		{"WARN", LevelWarn, true},
		{" Info ", LevelInfo, true},
		{"debug", LevelDebug, true},
		{"trace", LevelTrace, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "LEVEL(9)", LogLevel(9).String())
}
