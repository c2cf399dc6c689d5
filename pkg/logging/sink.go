package logging

import (
	"sync"
	"time"
)

// Entry is a log entry delivered to a Sink.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  []Field
}

// Sink receives a copy of every log entry emitted by a Logger.
type Sink interface {
	Write(entry Entry)
}

// CaptureSink is an in-memory sink. Tests and the diagnostics surface use it
// to assert on or display the entries a pipeline run produced.
type CaptureSink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCaptureSink creates an empty capture sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

// Write records the entry.
func (s *CaptureSink) Write(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (s *CaptureSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reset discards the recorded entries.
func (s *CaptureSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

var _ Sink = (*CaptureSink)(nil)
