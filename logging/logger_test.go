package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []Entry {
	t.Helper()
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", WARN, &buf)

	logger.Debug("general", "hidden", nil)
	logger.Info("general", "hidden", nil)
	logger.Warn("general", "shown", map[string]any{"k": "v"})
	logger.Error("general", "failed", errors.New("boom"), nil)

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[0].Logger != "test" || entries[0].Fields["k"] != "v" {
		t.Fatalf("unexpected warn entry %+v", entries[0])
	}
	if entries[1].Level != "ERROR" || entries[1].Error != "boom" {
		t.Fatalf("unexpected error entry %+v", entries[1])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("general", "ignored", nil)
	logger.Error("general", "ignored", errors.New("x"), nil)
	logger.WithRequestID("req").WithCategory("c").WithField("k", 1).Info("ignored")
}

func TestLogContextCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", DEBUG, &buf)
	logger.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	logger.WithRequestID("req-42").
		WithCategory("forms").
		WithFields(map[string]any{"form_id": "abc"}).
		Error("submission failed", errors.New("upstream"))

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.RequestID != "req-42" || e.Category != "forms" || e.Fields["form_id"] != "abc" || e.Error != "upstream" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", e.Timestamp)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"": INFO, "debug": DEBUG, "WARN": WARN, "warning": WARN, " error ": ERROR, "fatal": FATAL}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
