// Package ratelimit implements a per-user sliding-window rate limiter.
//
// State is process-local and best-effort: buckets are recreated empty on
// restart. Every check evicts stale timestamps for all users so the map
// cannot grow without bound.
package ratelimit

import (
	"sync"
	"time"
)

// Info describes the state of one user's window.
type Info struct {
	RequestsMade      int
	RequestsRemaining int
	// ResetTime is the unix second at which the oldest request in the
	// window expires.
	ResetTime int64
}

type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests map[string][]time.Time

	// now is swappable for tests
	now func() time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		window:   window,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *Limiter) Limit() int { return l.limit }

// Allow reports whether userID may make a request now, recording the
// request if so.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)

	recent := l.requests[userID]
	if len(recent) >= l.limit {
		return false
	}
	l.requests[userID] = append(recent, now)
	return true
}

// GetInfo returns the current window state for userID without recording
// a request.
func (l *Limiter) GetInfo(userID string) Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)

	recent := l.requests[userID]
	made := len(recent)
	remaining := l.limit - made
	if remaining < 0 {
		remaining = 0
	}

	reset := now.Add(l.window).Unix()
	if made > 0 {
		reset = recent[0].Add(l.window).Unix()
	}

	return Info{
		RequestsMade:      made,
		RequestsRemaining: remaining,
		ResetTime:         reset,
	}
}

// RetryAfter returns the seconds a denied user must wait, at least 1.
func (l *Limiter) RetryAfter(userID string) int64 {
	info := l.GetInfo(userID)
	retry := info.ResetTime - l.now().Unix()
	if retry < 1 {
		retry = 1
	}
	return retry
}

// evictLocked drops timestamps outside the window for every user and
// removes empty buckets. Caller holds l.mu.
func (l *Limiter) evictLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	for userID, times := range l.requests {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l.requests, userID)
		} else {
			l.requests[userID] = kept
		}
	}
}
