package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test", WARN, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("DEBUG should be suppressed at WARN level")
	}
	if strings.Contains(out, "info message") {
		t.Error("INFO should be suppressed at WARN level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("WARN message missing")
	}
	if !strings.Contains(out, "error message") {
		t.Error("ERROR message missing")
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("chat", DEBUG, &buf)

	logger.Info("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, "INFO [chat]") {
		t.Errorf("missing level/component prefix: %q", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("message not formatted: %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Errorf("missing caller location: %q", out)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("auth", DEBUG, &buf)

	logger.WithFields(map[string]interface{}{
		"user":   "u1",
		"action": "login",
	}).Info("authenticated")

	out := buf.String()
	if !strings.Contains(out, "action=login") || !strings.Contains(out, "user=u1") {
		t.Errorf("context fields missing: %q", out)
	}

	// Fields must not leak back into the parent logger
	buf.Reset()
	logger.Info("plain")
	if strings.Contains(buf.String(), "user=u1") {
		t.Error("WithFields mutated the parent logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DEBUG,
		"INFO":  INFO,
		"Warn":  WARN,
		"error": ERROR,
		"bogus": INFO,
		"":      INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
