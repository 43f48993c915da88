package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"college-chatbot-platform/internal/logger"
)

// Trail is the audit sink used throughout the pipeline. Recording must
// never fail the query that produced the event.
type Trail interface {
	Record(event Event)
	Close() error
}

type record struct {
	Timestamp string    `json:"timestamp"`
	EventType EventType `json:"event_type"`
	QueryID   string    `json:"query_id"`
	Data      Event     `json:"data"`
}

// FileTrail appends one JSON object per line to a log file. Writes are
// serialized with a mutex; entries are insert-only and never rewritten.
type FileTrail struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileTrail(path string) (*FileTrail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %v", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %v", err)
	}

	return &FileTrail{file: file}, nil
}

func (t *FileTrail) Record(event Event) {
	rec := record{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventType: event.Kind(),
		QueryID:   event.QueryRef(),
		Data:      event,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		logger.Error("Failed to marshal audit event", "event_type", event.Kind(), "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.file.Write(append(line, '\n')); err != nil {
		logger.Error("Failed to write audit event", "event_type", event.Kind(), "error", err)
	}
}

func (t *FileTrail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// MemoryTrail collects events in memory. Used in tests and as a safe
// default when no file sink is configured.
type MemoryTrail struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

func (t *MemoryTrail) Record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *MemoryTrail) Close() error { return nil }

// Events returns a snapshot of everything recorded so far.
func (t *MemoryTrail) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// ByKind filters the recorded events to one variant.
func (t *MemoryTrail) ByKind(kind EventType) []Event {
	var out []Event
	for _, e := range t.Events() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}
