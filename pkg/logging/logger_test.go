package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("debug", &buf)

	logger.Debug("hello", "key", "value")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["key"] != "value" {
		t.Fatalf("unexpected key attr: %v", line["key"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", &buf)

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if !strings.Contains(buf.String(), "emitted") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestComponentTagsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).Component("refunds")

	logger.Info("processed")
	if !strings.Contains(buf.String(), `"component":"refunds"`) {
		t.Fatalf("component tag missing: %q", buf.String())
	}
}
