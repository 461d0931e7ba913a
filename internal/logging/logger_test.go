package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", String("component", "test"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log output missing attribute: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARN") != parseLevel("warn") {
		t.Error("level parsing should ignore case")
	}
	if parseLevel("") != parseLevel("info") {
		t.Error("empty level should default to info")
	}
	if parseLevel("bogus") != parseLevel("info") {
		t.Error("unknown level should default to info")
	}
}

func TestNewComponentLoggerToleratesNil(t *testing.T) {
	logger := NewComponentLogger(nil, "test")
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Info("should not panic")
}
