package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, false)

	log.Debug().Msg("hidden")
	log.Info().Str("jql", "project = ABC").Msg("extracting")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["message"] != "extracting" || entry["jql"] != "project = ABC" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true, false)

	log.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug entry missing: %q", buf.String())
	}
}
