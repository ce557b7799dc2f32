package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
)

// InMemoryStore mirrors the postgres store's contract for tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]models.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]models.Session)}
}

func (s *InMemoryStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	return out, nil
}

func (s *InMemoryStore) Touch(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.LastSeenAt = at
		s.sessions[sessionID] = session
	}
	return nil
}

func (s *InMemoryStore) DeleteByUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sessionID, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, sessionID)
		}
	}
	return nil
}
