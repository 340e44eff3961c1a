package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imgbatch.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With("component", "job").Info("job started", "source", "/tmp/in dir", "count", 3)
	logger.Debug("hidden")
	logger.Warn("delete failed", "error", errors.New("permission denied"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", data)
	}
	if !strings.Contains(lines[0], "INFO job: job started") ||
		!strings.Contains(lines[0], `source="/tmp/in dir"`) ||
		!strings.Contains(lines[0], "count=3") {
		t.Fatalf("unexpected console line %q", lines[0])
	}
	if strings.Contains(lines[0], "component=") {
		t.Fatalf("component should be rendered as a prefix, got %q", lines[0])
	}
	if !strings.Contains(lines[1], `WARN delete failed error="permission denied"`) {
		t.Fatalf("unexpected warn line %q", lines[1])
	}
}

func TestJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgbatch.json")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path, path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("probe", "file", "a.png")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", data, err)
	}
	if rec["level"] != "debug" || rec["msg"] != "probe" || rec["file"] != "a.png" {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", rec)
	}
}

func TestInvalidOptions(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected invalid format error")
	}
}
