package setting

import (
	"context"
	"sort"
	"sync"

	"scubaai/internal/settings/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// InMemoryStore keeps settings in a map, for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	settings map[id.SettingID]models.Setting
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{settings: make(map[id.SettingID]models.Setting)}
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := make([]models.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		settings = append(settings, setting)
	}
	sort.Slice(settings, func(i, j int) bool {
		return settings[i].Key < settings[j].Key
	})
	return settings, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, settingID id.SettingID) (models.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[settingID]
	if !ok {
		return models.Setting{}, sentinel.ErrNotFound
	}
	return setting, nil
}

func (s *InMemoryStore) GetByKey(_ context.Context, key string) (models.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, setting := range s.settings {
		if setting.Key == key {
			return setting, nil
		}
	}
	return models.Setting{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Create(_ context.Context, setting models.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.settings {
		if existing.Key == setting.Key {
			return sentinel.ErrConflict
		}
	}
	s.settings[setting.ID] = setting
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, setting models.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[setting.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.settings[setting.ID] = setting
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, settingID id.SettingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[settingID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.settings, settingID)
	return nil
}
