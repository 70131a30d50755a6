package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("storage decoded", "bytes", 16)

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("Erwartete level=TRACE, bekam %q", out)
	}
	if !strings.Contains(out, "source=logutil_test.go:") {
		t.Errorf("Erwartete gekuerzten Quellpfad, bekam %q", out)
	}
	if !strings.Contains(out, "bytes=16") {
		t.Errorf("Erwartete Attribut bytes=16, bekam %q", out)
	}
}

func TestTraceDisabled(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, slog.LevelDebug))
	Trace("hidden")
	if buf.Len() != 0 {
		t.Errorf("Trace sollte bei Debug-Level nichts ausgeben, bekam %q", buf.String())
	}
}
