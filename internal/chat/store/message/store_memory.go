package message

import (
	"context"
	"sort"
	"sync"

	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// InMemoryStore keeps messages in a map, for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	msgs map[id.MessageID]models.Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{msgs: make(map[id.MessageID]models.Message)}
}

func (s *InMemoryStore) Create(_ context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[msg.ID] = msg
	return nil
}

func (s *InMemoryStore) ListByConversation(_ context.Context, convID id.ConversationID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []models.Message
	for _, msg := range s.msgs {
		if msg.ConversationID == convID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (s *InMemoryStore) Count(_ context.Context, convID id.ConversationID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, msg := range s.msgs {
		if msg.ConversationID == convID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) Get(_ context.Context, msgID id.MessageID) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.msgs[msgID]
	if !ok {
		return models.Message{}, sentinel.ErrNotFound
	}
	return msg, nil
}

func (s *InMemoryStore) Delete(_ context.Context, msgID id.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[msgID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.msgs, msgID)
	return nil
}
