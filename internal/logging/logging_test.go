package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerHoistsComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	WithComponent(logger, "ledger").Info("job claimed",
		String(FieldJobID, "a1b2c3d4"),
		String(FieldCategory, "rip"),
	)

	line := buf.String()
	if !strings.Contains(line, "ledger: job claimed") {
		t.Fatalf("component not hoisted into prefix: %q", line)
	}
	if !strings.Contains(line, "job_id=a1b2c3d4") {
		t.Fatalf("missing job_id attr: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Warn("fail", String(FieldError, "exit status 1"))

	if !strings.Contains(buf.String(), `error="exit status 1"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar)))

	logger.Info("hello", Int(FieldExitCode, 2))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %v", key, decoded)
		}
	}
	if decoded["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", decoded["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestErrorAttrHandlesNil(t *testing.T) {
	attr := Error(nil)
	if attr.Value.String() != "" {
		t.Fatalf("nil error should produce empty value, got %q", attr.Value.String())
	}
	attr = Error(errors.New("boom"))
	if attr.Value.String() != "boom" {
		t.Fatalf("unexpected error value: %q", attr.Value.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(nil, slog.LevelError) { //nolint:staticcheck
		t.Fatal("nop logger should be disabled at every level")
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog("job", 1) {
		t.Fatal("first value should log")
	}
	if s.ShouldLog("job", 2) {
		t.Fatal("same bucket should not log again")
	}
	if !s.ShouldLog("job", 7) {
		t.Fatal("next bucket should log")
	}
	if !s.ShouldLog("job", 100) {
		t.Fatal("terminal value should always log")
	}
	if !s.ShouldLog("job", 100) {
		t.Fatal("repeated terminal value should still log")
	}

	s.Reset("job")
	if !s.ShouldLog("job", 1) {
		t.Fatal("reset key should log again")
	}
}

func TestOpenWritersDeduplicates(t *testing.T) {
	w, err := openWriters([]string{"stdout", "stdout", ""})
	if err != nil {
		t.Fatalf("openWriters failed: %v", err)
	}
	if _, ok := w.(io.Writer); !ok {
		t.Fatal("expected a writer")
	}
}
