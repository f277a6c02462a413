// Package session tracks analytics sessions keyed by (email, subject).
// These are short-lived identifiers for grouping conversation turns and
// are distinct from the persistent LTI launch sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sweepThreshold is the map size past which a lookup also sweeps
// expired entries.
const sweepThreshold = 10

type entry struct {
	sessionID    string
	email        string
	subject      string
	created      time.Time
	lastActivity time.Time
	messageCount int
}

type Tracker struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[string]*entry

	now func() time.Time
}

func NewTracker(timeout time.Duration) *Tracker {
	return &Tracker{
		timeout: timeout,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func key(email, subject string) string {
	return email + "_" + subject
}

// GetOrCreate returns the active session id for (email, subject),
// creating a fresh one when none exists or the previous timed out.
// created reports whether a new session was started.
func (t *Tracker) GetOrCreate(email, subject string) (sessionID string, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if len(t.entries) > sweepThreshold {
		t.sweepLocked(now)
	}

	k := key(email, subject)
	if e, ok := t.entries[k]; ok && now.Sub(e.lastActivity) < t.timeout {
		e.lastActivity = now
		return e.sessionID, false
	}

	e := &entry{
		sessionID:    uuid.NewString(),
		email:        email,
		subject:      subject,
		created:      now,
		lastActivity: now,
	}
	t.entries[k] = e
	return e.sessionID, true
}

// Touch refreshes activity and increments the message counter.
// Returns the session id, or "" if no live session exists.
func (t *Tracker) Touch(email, subject string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key(email, subject)]
	if !ok {
		return ""
	}
	e.messageCount++
	e.lastActivity = t.now()
	return e.sessionID
}

// End removes the (email, subject) session and returns its id, or ""
// when none was tracked.
func (t *Tracker) End(email, subject string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(email, subject)
	e, ok := t.entries[k]
	if !ok {
		return ""
	}
	delete(t.entries, k)
	return e.sessionID
}

// ActiveCount returns the number of tracked sessions, live or not.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes timed-out sessions and returns how many were dropped.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(t.now())
}

func (t *Tracker) sweepLocked(now time.Time) int {
	dropped := 0
	for k, e := range t.entries {
		if now.Sub(e.lastActivity) >= t.timeout {
			delete(t.entries, k)
			dropped++
		}
	}
	return dropped
}
