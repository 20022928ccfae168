package capture

import "time"

// Default timing policy.
const (
	DefaultBaseTimeout  = 10 * time.Second
	DefaultMaxTimeout   = 30 * time.Second
	DefaultBackoffStep  = 0.5
	DefaultAttemptPause = 150 * time.Millisecond
)

// TimeoutPolicy bounds an acquisition attempt. The bound grows linearly with
// the retry count and is capped at Max.
type TimeoutPolicy struct {
	Base time.Duration
	Max  time.Duration
	Step float64
}

// DefaultTimeoutPolicy returns the shipped timing policy.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{Base: DefaultBaseTimeout, Max: DefaultMaxTimeout, Step: DefaultBackoffStep}
}

// Bound returns the timeout for an attempt made after retries failures.
func (p TimeoutPolicy) Bound(retries int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultBaseTimeout
	}
	maxBound := p.Max
	if maxBound < base {
		maxBound = base
	}
	if retries < 0 {
		retries = 0
	}
	step := p.Step
	if step < 0 {
		step = 0
	}
	scaled := time.Duration(float64(base) * (1 + step*float64(retries)))
	if scaled > maxBound || scaled < base {
		return maxBound
	}
	return scaled
}
