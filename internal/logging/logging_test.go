package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("error message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn level should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("warn and error messages should be logged, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("analysis started", Fields{"url": "https://example.com/repo.git"})

	var e map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if e["message"] != "analysis started" {
		t.Errorf("expected message 'analysis started', got %v", e["message"])
	}
	fields, ok := e["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected fields object, got %T", e["fields"])
	}
	if fields["url"] != "https://example.com/repo.git" {
		t.Errorf("expected url field, got %v", fields["url"])
	}
}

func TestHumanFormatFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: HumanFormat, Level: DebugLevel, Output: &buf})

	logger.Debug("scanning", Fields{"files": 12})

	out := buf.String()
	if !strings.Contains(out, "scanning") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, "files=12") {
		t.Errorf("expected field in output, got: %s", out)
	}
}
