package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewWithFile_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinchart.log")

	log, err := NewWithFile(false, FileConfig{Path: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.Info("chart rendered")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"chart rendered"`) {
		t.Errorf("expected JSON log line, got %s", data)
	}
}

func TestNewWithFile_EmptyPath(t *testing.T) {
	log, err := NewWithFile(true, FileConfig{})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
