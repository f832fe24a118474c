package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown", "site", "mss")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "site=mss") || !strings.Contains(out, "app=policydigest") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "verbose", "")
	logger.Debug("hidden")
	logger.Info("shown")

	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "JSON").Info("collected", "source", "기업마당", "count", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a json record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "collected" || record["source"] != "기업마당" || record["app"] != "policydigest" {
		t.Fatalf("unexpected record: %v", record)
	}
}
