package logging

import (
	"slices"
	"sync"
	"time"
)

// LogEntry represents a single log line stored in the ring buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer is a thread-safe circular buffer for log entries.
type RingBuffer struct {
	entries []LogEntry
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &RingBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Write adds a log entry to the buffer, overwriting the oldest entry if full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// ReadAll returns all entries in chronological order.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Filter(0, nil)
}

// Tail returns the newest n entries in chronological order. n <= 0 returns all.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	return rb.Filter(n, nil)
}

// Filter returns the newest n entries accepted by keep, oldest first.
// n <= 0 means no limit and a nil keep accepts everything.
func (rb *RingBuffer) Filter(n int, keep func(LogEntry) bool) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []LogEntry
	// walk back from the newest entry
	for i := 1; i <= rb.count; i++ {
		if n > 0 && len(out) == n {
			break
		}
		e := rb.entries[(rb.head-i+rb.size)%rb.size]
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}

// Count returns the number of entries in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// FromModules returns a Filter predicate accepting the given modules.
func FromModules(modules ...string) func(LogEntry) bool {
	return func(e LogEntry) bool {
		return slices.Contains(modules, e.Module)
	}
}
