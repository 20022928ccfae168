package logging

import (
	"strconv"
	"testing"
)

func fill(rb *RingBuffer, n int) {
	for i := range n {
		rb.Write(LogEntry{Message: strconv.Itoa(i)})
	}
}

func messages(entries []LogEntry) string {
	var s string
	for _, e := range entries {
		s += e.Message
	}
	return s
}

func TestRingBuffer_NotFull(t *testing.T) {
	rb := NewRingBuffer(5)
	fill(rb, 3)

	if got := messages(rb.ReadAll()); got != "012" {
		t.Errorf("ReadAll() = %q, want %q", got, "012")
	}
	if rb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rb.Count())
	}
}

func TestRingBuffer_Wraps(t *testing.T) {
	rb := NewRingBuffer(4)
	fill(rb, 7)

	if got := messages(rb.ReadAll()); got != "3456" {
		t.Errorf("ReadAll() = %q, want %q", got, "3456")
	}
	if rb.Count() != 4 {
		t.Errorf("Count() = %d, want 4", rb.Count())
	}
}

func TestRingBuffer_Tail(t *testing.T) {
	rb := NewRingBuffer(4)
	fill(rb, 6)

	tests := []struct {
		n    int
		want string
	}{
		{1, "5"},
		{2, "45"},
		{4, "2345"},
		{10, "2345"},
		{0, "2345"},
	}
	for _, tt := range tests {
		if got := messages(rb.Tail(tt.n)); got != tt.want {
			t.Errorf("Tail(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRingBuffer_Empty(t *testing.T) {
	rb := NewRingBuffer(0)
	if got := rb.ReadAll(); got != nil {
		t.Errorf("Expected nil for empty buffer, got %v", got)
	}
	fill(rb, 1)
	if rb.Count() != 1 {
		t.Errorf("Expected zero size to fall back to default capacity")
	}
}

func TestRingBuffer_Filter(t *testing.T) {
	rb := NewRingBuffer(8)
	for i, module := range []string{"capture", "api", "platform", "capture", "http", "capture"} {
		rb.Write(LogEntry{Module: module, Message: strconv.Itoa(i)})
	}

	tests := []struct {
		name    string
		n       int
		modules []string
		want    string
	}{
		{"newest capture", 2, []string{"capture"}, "35"},
		{"all capture", 0, []string{"capture"}, "035"},
		{"several modules", 3, []string{"capture", "platform"}, "235"},
		{"no match", 5, []string{"ffmpeg"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messages(rb.Filter(tt.n, FromModules(tt.modules...))); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
