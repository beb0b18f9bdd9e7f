// Package ratelimiter gates periodic work such as progress reports to at
// most one occurrence per interval.
package ratelimiter

import (
	"sync"
	"time"
)

// Limiter allows one action per interval and is safe for concurrent use.
// A zero or negative interval allows every action.
type Limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastAllowed time.Time
	count       int64
	now         func() time.Time
}

// New creates a new limiter with the specified interval
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether an action may run now. The first call always
// succeeds; when it returns false the second value is the remaining wait.
func (l *Limiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowAt(l.now())
}

func (l *Limiter) allowAt(now time.Time) (bool, time.Duration) {
	if l.interval <= 0 || l.lastAllowed.IsZero() {
		l.lastAllowed = now
		l.count++
		return true, 0
	}

	elapsed := now.Sub(l.lastAllowed)
	if elapsed >= l.interval {
		l.lastAllowed = now
		l.count++
		return true, 0
	}
	return false, l.interval - elapsed
}

// Reset clears the limiter state, allowing the next action immediately
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.lastAllowed = time.Time{}
	l.mu.Unlock()
}

// Allowed returns how many actions have been allowed so far
func (l *Limiter) Allowed() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Interval returns the configured interval
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
