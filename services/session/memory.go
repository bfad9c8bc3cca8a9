package sessionsvc

import (
	"context"
	"sync"
	"time"

	"github.com/hien-pd-dac/tutorfinder/core"
)

type memoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // {sessionID: expiresAt}
	now     func() time.Time
}

var _ core.SessionStore = (*memoryStore)(nil)

// NewMemoryStore keeps revoked sessions in process memory. Used when no Redis is configured.
func NewMemoryStore() core.SessionStore {
	return &memoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *memoryStore) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.After(now) {
		s.revoked[sessionID] = expiresAt
	}
	return nil
}

func (s *memoryStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[sessionID]
	return ok && exp.After(s.now()), nil
}
