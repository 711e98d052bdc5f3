package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelWarn)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "[WARN] warn line")
	assert.Contains(t, out, "[ERROR] error line")
}

func TestDefaultLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelDebug)

	logger.Info("gathered %d findings for %q", 7, "ai in healthcare")

	assert.Contains(t, buf.String(), `gathered 7 findings for "ai in healthcare"`)
	assert.Contains(t, buf.String(), "[deepresearch]")
}

func TestNoOpLoggerStaysSilent(t *testing.T) {
	logger := &NoOpLogger{}
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		LogLevelDebug: "DEBUG",
		LogLevelInfo:  "INFO",
		LogLevelWarn:  "WARN",
		LogLevelError: "ERROR",
		LogLevelNone:  "NONE",
	}
	for level, want := range cases {
		assert.Equal(t, want, level.String())
	}
	assert.True(t, strings.HasPrefix(LogLevel(42).String(), "UNKNOWN"))
}

func TestPackageLevelLogger(t *testing.T) {
	old := GetDefaultLogger()
	defer SetDefaultLogger(old)

	var buf bytes.Buffer
	SetDefaultLogger(NewCustomLogger(&buf, LogLevelDebug))

	Debug("one")
	Info("two")
	Warn("three")
	Error("four")

	out := buf.String()
	for _, want := range []string{"one", "two", "three", "four"} {
		assert.Contains(t, out, want)
	}
}
