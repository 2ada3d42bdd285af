package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogEntry is one decoded JSON log line.
type LogEntry map[string]any

// Msg returns the entry's message.
func (e LogEntry) Msg() string {
	s, _ := e[slog.MessageKey].(string)
	return s
}

// Level returns the entry's level name, such as "WARN".
func (e LogEntry) Level() string {
	s, _ := e[slog.LevelKey].(string)
	return s
}

// TestLogBuffer collects JSON log output from concurrent writers.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards everything logged so far.
func (b *TestLogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Entries decodes every line logged so far. A line that is not JSON fails
// the test.
func (b *TestLogBuffer) Entries(t testing.TB) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(b.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, line)
		}
		entries = append(entries, e)
	}
	return entries
}

// Find returns the first entry with the given message.
func (b *TestLogBuffer) Find(t testing.TB, msg string) (LogEntry, bool) {
	t.Helper()
	for _, e := range b.Entries(t) {
		if e.Msg() == msg {
			return e, true
		}
	}
	return nil, false
}

// GetTestLogger returns a debug-level JSON logger and the buffer it writes to.
func GetTestLogger(t testing.TB) (*slog.Logger, *TestLogBuffer) {
	t.Helper()
	buf := &TestLogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// AssertLogContains fails the test unless content appears somewhere in the log.
func AssertLogContains(t testing.TB, buf *TestLogBuffer, content string) {
	t.Helper()
	if logs := buf.String(); !strings.Contains(logs, content) {
		t.Errorf("expected log to contain %q\nlogs:\n%s", content, logs)
	}
}

// AssertLogField fails the test unless some entry has field set to expected.
func AssertLogField(t testing.TB, buf *TestLogBuffer, field string, expected any) {
	t.Helper()
	entries := buf.Entries(t)
	for _, e := range entries {
		if v, ok := e[field]; ok && v == expected {
			return
		}
	}
	t.Errorf("no log entry has %s=%v among %d entries", field, expected, len(entries))
}
