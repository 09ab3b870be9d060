package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	adminID   int64
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Expired entries are rejected on
// read and removed by Sweep.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

func (s *MemoryStore) Create(_ context.Context, token string, adminID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = entry{adminID: adminID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return 0, ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, token)
		return 0, ErrNotFound
	}
	return e.adminID, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (s *MemoryStore) Sweep(context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
