// Package limits holds single-instance in-process guards.
package limits

import "sync"

// UserLimits caps how many write requests one account may have in flight.
// Booking and payment writes lock rows; a double-submitted form should get
// a quick refusal instead of queueing behind its twin.
type UserLimits struct {
	maxInflight int

	mu       sync.Mutex
	inflight map[int64]int
}

func NewUserLimits(maxInflight int) *UserLimits {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	return &UserLimits{
		maxInflight: maxInflight,
		inflight:    make(map[int64]int),
	}
}

func (l *UserLimits) Acquire(userID int64) bool {
	if userID <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[userID] >= l.maxInflight {
		return false
	}
	l.inflight[userID]++
	return true
}

func (l *UserLimits) Release(userID int64) {
	if userID <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[userID] > 0 {
		l.inflight[userID]--
	}
	if l.inflight[userID] == 0 {
		delete(l.inflight, userID)
	}
}

// Inflight reports the current count, for tests and debugging.
func (l *UserLimits) Inflight(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight[userID]
}
