package user

import (
	"context"
	"sort"
	"sync"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// InMemoryStore mirrors the postgres store's contract for tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, userID id.UserID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	return user, nil
}

func (s *InMemoryStore) GetByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for otherID, existing := range s.users {
		if otherID == user.ID {
			continue
		}
		if existing.Username == user.Username || existing.Email == user.Email {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}
