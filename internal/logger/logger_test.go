package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLoggerLevelAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info").With("component", "transform")

	log.Debug("hidden")
	log.Info("transformed", "rows", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %s", out)
	}
	if !strings.Contains(out, "component=transform") || !strings.Contains(out, "rows=3") {
		t.Errorf("missing attributes: %s", out)
	}

	log.SetLevel("debug")
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug record should pass after SetLevel")
	}
}
