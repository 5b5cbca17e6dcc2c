// Package logbuf keeps a bounded in-memory tail of recent log entries so
// the API can expose them without a log shipping dependency.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Buffer retains the most recent entries up to a fixed capacity.
type Buffer struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// New creates a buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{cap: capacity}
}

// Write records an entry, evicting the oldest once the buffer is full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.cap {
		// Shift rather than reslice so the backing array stays bounded.
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.cap]
	}
	b.mu.Unlock()
}

// Query returns entries at or above minLevel recorded at or after since,
// oldest first. A zero since matches everything; limit <= 0 means no cap.
// When more entries match than limit allows, the newest are kept.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Entry
	for _, e := range b.entries {
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if levelOf(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Tail returns the n most recent entries regardless of level.
func (b *Buffer) Tail(n int) []Entry {
	return b.Query(time.Time{}, slog.LevelDebug, n)
}

func levelOf(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
