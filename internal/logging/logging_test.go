package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocr.log")
	log, closer, err := New(path, "debug")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.WithField("engine", "tesseract").Info("Starting OCR server")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Starting OCR server") || !strings.Contains(string(data), "engine=tesseract") {
		t.Fatalf("log file = %q", data)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New("", "loud"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}
