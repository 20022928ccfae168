package capture

import (
	"testing"
	"time"
)

func TestTimeoutPolicy_Bound(t *testing.T) {
	p := DefaultTimeoutPolicy()

	tests := []struct {
		retries int
		want    time.Duration
	}{
		{-1, 10 * time.Second},
		{0, 10 * time.Second},
		{1, 15 * time.Second},
		{2, 20 * time.Second},
		{4, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Bound(tt.retries); got != tt.want {
			t.Errorf("Bound(%d): expected %v, got %v", tt.retries, tt.want, got)
		}
	}
}

func TestTimeoutPolicy_Monotonic(t *testing.T) {
	policies := []TimeoutPolicy{
		DefaultTimeoutPolicy(),
		{Base: time.Second, Max: time.Minute, Step: 2},
		{Base: time.Second, Max: time.Second, Step: 1},
		{Base: time.Second, Step: 0},
		{Base: time.Millisecond, Max: time.Hour, Step: 1e9},
	}
	for _, p := range policies {
		prev := p.Bound(0)
		for retries := 1; retries < 200; retries++ {
			got := p.Bound(retries)
			if got < prev {
				t.Fatalf("%+v: Bound(%d)=%v is below Bound(%d)=%v", p, retries, got, retries-1, prev)
			}
			prev = got
		}
	}
}

func TestTimeoutPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var p TimeoutPolicy
	if got := p.Bound(0); got != DefaultBaseTimeout {
		t.Errorf("Expected %v, got %v", DefaultBaseTimeout, got)
	}
	if got := p.Bound(5); got != DefaultBaseTimeout {
		t.Errorf("Expected max clamped to base, got %v", got)
	}
}
