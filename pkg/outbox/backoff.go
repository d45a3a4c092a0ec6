package outbox

import "time"

// Backoff computes the retry delay after the given number of failed attempts:
// min(max, base * 2^attempts). The doubling loop stops at the cap, so large
// attempt counts cannot overflow.
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = base
	}
	delay := base
	for i := 0; i < attempts && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	return delay
}
