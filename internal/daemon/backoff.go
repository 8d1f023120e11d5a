package daemon

import "time"

// backoff implements the reconnect schedule from spec §4.F: exponential
// starting at Min, doubling to a Max cap, reset on any clean close.
type backoff struct {
	Min, Max time.Duration
	current  time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	return &backoff{Min: min, Max: max, current: min}
}

// Next returns the delay to wait before the next reconnect attempt and
// advances the schedule.
func (b *backoff) Next() time.Duration {
	delay := b.current
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return delay
}

// Reset returns the schedule to its starting delay.
func (b *backoff) Reset() {
	b.current = b.Min
}
