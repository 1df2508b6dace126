package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":    slog.LevelError,
		" WARN ":   slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"info":     slog.LevelInfo,
		"debug":    slog.LevelDebug,
		"anything": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWriterFormats(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	NewWriter(&text, "info", "text").With("component", "pipeline").Info("cycle done", "areas", 2)
	if !strings.Contains(text.String(), "component=pipeline") {
		t.Fatalf("unexpected text output: %s", text.String())
	}

	var js bytes.Buffer
	NewWriter(&js, "info", "json").Debug("hidden")
	NewWriter(&js, "info", "JSON").Info("shown", "area", "astro")
	var rec map[string]any
	if err := json.Unmarshal(js.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", js.String(), err)
	}
	if rec["area"] != "astro" || rec["msg"] != "shown" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
