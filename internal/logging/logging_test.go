package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)
	logger.Error("shown", nil)

	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("expected 2 lines at warn level, got %d: %q", lines, buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"":      InfoLevel,
		"loud":  InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJSONEntryShape(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("indexed", map[string]interface{}{"path": "src/a.ts", "count": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "info" || entry["msg"] != "indexed" {
		t.Errorf("reserved keys: %v", entry)
	}
	if entry["path"] != "src/a.ts" || entry["count"] != float64(3) {
		t.Errorf("fields must be inlined flat: %v", entry)
	}
	if entry["ts"] == "" {
		t.Error("timestamp missing")
	}
}

func TestFieldsEmittedInSortedOrder(t *testing.T) {
	fields := map[string]interface{}{"zeta": 1, "alpha": 2, "mid": 3}

	var human bytes.Buffer
	NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &human}).Info("m", fields)
	line := human.String()
	if !(strings.Index(line, "alpha=") < strings.Index(line, "mid=") &&
		strings.Index(line, "mid=") < strings.Index(line, "zeta=")) {
		t.Errorf("human fields not sorted: %q", line)
	}

	// Identical input yields byte-identical field ordering in JSON too.
	var a, b bytes.Buffer
	NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &a}).Info("m", fields)
	NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &b}).Info("m", fields)
	trim := func(s string) string {
		// Strip the leading timestamp object prefix up to "level".
		return s[strings.Index(s, `"level"`):]
	}
	if trim(a.String()) != trim(b.String()) {
		t.Errorf("JSON field order not deterministic:\n%q\n%q", a.String(), b.String())
	}
}

func TestDefaultLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Output: &buf})
	logger.Debug("hidden", nil)
	logger.Info("shown", nil)
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("default level: %q", buf.String())
	}
}
