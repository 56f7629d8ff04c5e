package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "text")

	if logger.GetLevel() != log.WarnLevel {
		t.Fatalf("expected warn level, got %v", logger.GetLevel())
	}

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("expected warn message with key/value, got %q", out)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Info("order placed", "order", "MH-123456")

	if !strings.Contains(buf.String(), `"order":"MH-123456"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	if logger.GetLevel() != log.InfoLevel {
		t.Errorf("expected info level fallback, got %v", logger.GetLevel())
	}
}
