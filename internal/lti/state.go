package lti

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

const stateTTL = 10 * time.Minute

// StateStore ties each OIDC login initiation to its expected launch.
// A state is single use: consuming it removes it.
type StateStore struct {
	mu      sync.Mutex
	pending map[string]stateEntry
	now     func() time.Time
}

type stateEntry struct {
	nonce   string
	expires time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		pending: make(map[string]stateEntry),
		now:     time.Now,
	}
}

// Begin creates a fresh state/nonce pair for a login initiation.
func (s *StateStore) Begin() (state, nonce string, err error) {
	state, err = randomToken()
	if err != nil {
		return "", "", err
	}
	nonce, err = randomToken()
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for st, entry := range s.pending {
		if now.After(entry.expires) {
			delete(s.pending, st)
		}
	}
	s.pending[state] = stateEntry{nonce: nonce, expires: now.Add(stateTTL)}
	return state, nonce, nil
}

// Consume validates and removes a state, returning its nonce.
func (s *StateStore) Consume(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[state]
	if !ok {
		return "", errors.New("unknown or already used state")
	}
	delete(s.pending, state)
	if s.now().After(entry.expires) {
		return "", errors.New("state expired")
	}
	return entry.nonce, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
