package capture

import (
	"sync"
	"sync/atomic"
)

// streamHandle owns one acquired stream. release stops every track exactly
// once no matter how many exit paths reach it.
type streamHandle struct {
	stream  Stream
	profile ConstraintProfile
	once    sync.Once
	onFree  func()
}

func newStreamHandle(s Stream, profile ConstraintProfile, onFree func()) *streamHandle {
	return &streamHandle{stream: s, profile: profile, onFree: onFree}
}

func (h *streamHandle) release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		for _, t := range h.stream.Tracks() {
			if t != nil {
				t.Stop()
			}
		}
		if h.onFree != nil {
			h.onFree()
		}
	})
}

// HandleCounter tracks live stream handles for diagnostics and tests.
type HandleCounter struct {
	live atomic.Int64
}

// Live returns the number of handles acquired and not yet released.
func (c *HandleCounter) Live() int64 {
	return c.live.Load()
}

func (c *HandleCounter) wrap(s Stream, profile ConstraintProfile) *streamHandle {
	c.live.Add(1)
	return newStreamHandle(s, profile, func() { c.live.Add(-1) })
}

// claim is the process-wide token that keeps a single session starting or
// active at a time.
type claim struct {
	mu    sync.Mutex
	owner any
}

var processClaim = &claim{}

func (c *claim) acquire(owner any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != nil && c.owner != owner {
		return false
	}
	c.owner = owner
	return true
}

func (c *claim) release(owner any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == owner {
		c.owner = nil
	}
}
