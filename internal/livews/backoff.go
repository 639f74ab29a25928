package livews

import "time"

const maxBackoffDoublings = 6

// backoffDuration doubles base per attempt and stops growing after six
// doublings: base, 2*base, ... 32*base.
func backoffDuration(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxBackoffDoublings {
		attempt = maxBackoffDoublings
	}
	return time.Duration(1<<uint(attempt-1)) * base
}
