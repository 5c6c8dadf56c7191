package engine

import (
	"sync"
	"time"
)

// SnoozeTimer tracks a single engine-wide suppression deadline.
// Expiry is lazy: IsActive clears a passed deadline, no goroutine is involved.
type SnoozeTimer struct {
	now      func() time.Time
	deadline time.Time
	mu       sync.Mutex
}

// NewSnoozeTimer creates a timer reading the current time from now.
func NewSnoozeTimer(now func() time.Time) *SnoozeTimer {
	if now == nil {
		now = time.Now
	}

	return &SnoozeTimer{now: now}
}

// Snooze sets the deadline to now+d, replacing any existing deadline.
// It returns the new deadline.
func (t *SnoozeTimer) Snooze(d time.Duration) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deadline = t.now().Add(d)

	return t.deadline
}

// Clear removes the deadline and reports whether one was active.
func (t *SnoozeTimer) Clear() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasActive := !t.deadline.IsZero() && t.now().Before(t.deadline)
	t.deadline = time.Time{}

	return wasActive
}

// IsActive reports whether a deadline is set and now is before it.
// An expired deadline is cleared as a side effect.
func (t *SnoozeTimer) IsActive(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deadline.IsZero() {
		return false
	}

	if now.Before(t.deadline) {
		return true
	}

	t.deadline = time.Time{}

	return false
}

// Deadline returns the current deadline without touching it.
func (t *SnoozeTimer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.deadline, !t.deadline.IsZero()
}
