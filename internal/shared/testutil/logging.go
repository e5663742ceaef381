package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogEntry is a single captured log record.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is an slog.Handler that keeps records in memory so tests can
// assert on what was logged. It is safe for concurrent use.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
	t       *testing.T
}

// NewLogRecorder creates an empty recorder. When t is non-nil, records are
// also echoed to the test log for easier debugging.
func NewLogRecorder(t *testing.T) *LogRecorder {
	return &LogRecorder{t: t}
}

// NewTestLogger returns a logger backed by a fresh recorder.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogRecorder) {
	rec := NewLogRecorder(t)
	return slog.New(rec), rec
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any)
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	r.mu.Lock()
	r.entries = append(r.entries, LogEntry{
		Time:    rec.Time,
		Level:   rec.Level,
		Message: rec.Message,
		Attrs:   attrs,
	})
	r.mu.Unlock()

	if r.t != nil {
		r.t.Logf("[%s] %s %v", rec.Level, rec.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler. Tests capture every level.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// WithAttrs implements slog.Handler. Grouped attrs are not needed in tests.
func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

// WithGroup implements slog.Handler.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of all captured records.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// AtLevel returns the captured records with the given level.
func (r *LogRecorder) AtLevel(level slog.Level) []LogEntry {
	var out []LogEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasMessage reports whether any record's message contains substr.
func (r *LogRecorder) HasMessage(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// HasAttr reports whether any record carries the given attribute value.
func (r *LogRecorder) HasAttr(key string, value any) bool {
	for _, e := range r.Entries() {
		if v, ok := e.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Count returns the number of captured records.
func (r *LogRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset discards all captured records.
func (r *LogRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// AssertLogged fails the test unless a record at the given level contains
// the message substring.
func AssertLogged(t *testing.T, rec *LogRecorder, level slog.Level, message string) {
	t.Helper()

	for _, e := range rec.AtLevel(level) {
		if strings.Contains(e.Message, message) {
			return
		}
	}

	t.Errorf("expected %s log containing %q", level, message)
	for _, e := range rec.AtLevel(level) {
		t.Logf("  captured: %s", e.Message)
	}
}
