package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// InMemoryStore keeps conversations in a map, for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	convs map[id.ConversationID]models.Conversation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{convs: make(map[id.ConversationID]models.Conversation)}
}

func (s *InMemoryStore) Create(_ context.Context, conv models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
	return nil
}

func (s *InMemoryStore) GetOwned(_ context.Context, convID id.ConversationID, userID id.UserID) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[convID]
	if !ok || conv.UserID != userID {
		return models.Conversation{}, sentinel.ErrNotFound
	}
	return conv, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var convs []models.Conversation
	for _, conv := range s.convs {
		if conv.UserID == userID {
			convs = append(convs, conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *InMemoryStore) UpdateTitle(_ context.Context, convID id.ConversationID, title string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return sentinel.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = at
	s.convs[convID] = conv
	return nil
}

func (s *InMemoryStore) Touch(_ context.Context, convID id.ConversationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return sentinel.ErrNotFound
	}
	conv.UpdatedAt = at
	s.convs[convID] = conv
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, convID id.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[convID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.convs, convID)
	return nil
}
