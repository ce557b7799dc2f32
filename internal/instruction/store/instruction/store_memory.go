package instruction

import (
	"context"
	"sort"
	"sync"

	"scubaai/internal/instruction/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// InMemoryStore keeps instructions in a map, for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	instrs map[id.InstructionID]models.Instruction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instrs: make(map[id.InstructionID]models.Instruction)}
}

func (s *InMemoryStore) Create(_ context.Context, instr models.Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instr.IsDefault {
		s.clearDefaultLocked(instr.UserID)
	}
	s.instrs[instr.ID] = instr
	return nil
}

func (s *InMemoryStore) GetOwned(_ context.Context, instrID id.InstructionID, userID id.UserID) (models.Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instr, ok := s.instrs[instrID]
	if !ok || instr.UserID != userID {
		return models.Instruction{}, sentinel.ErrNotFound
	}
	return instr, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var instrs []models.Instruction
	for _, instr := range s.instrs {
		if instr.UserID == userID {
			instrs = append(instrs, instr)
		}
	}
	sort.Slice(instrs, func(i, j int) bool {
		if instrs[i].IsDefault != instrs[j].IsDefault {
			return instrs[i].IsDefault
		}
		return instrs[i].CreatedAt.After(instrs[j].CreatedAt)
	})
	return instrs, nil
}

func (s *InMemoryStore) Update(_ context.Context, instr models.Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.instrs[instr.ID]
	if !ok || existing.UserID != instr.UserID {
		return sentinel.ErrNotFound
	}
	if instr.IsDefault {
		s.clearDefaultLocked(instr.UserID)
	}
	s.instrs[instr.ID] = instr
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, instrID id.InstructionID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	instr, ok := s.instrs[instrID]
	if !ok || instr.UserID != userID {
		return sentinel.ErrNotFound
	}
	delete(s.instrs, instrID)
	return nil
}

func (s *InMemoryStore) GetDefault(_ context.Context, userID id.UserID) (models.Instruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, instr := range s.instrs {
		if instr.UserID == userID && instr.IsDefault {
			return instr, nil
		}
	}
	return models.Instruction{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) clearDefaultLocked(userID id.UserID) {
	for key, instr := range s.instrs {
		if instr.UserID == userID && instr.IsDefault {
			instr.IsDefault = false
			s.instrs[key] = instr
		}
	}
}
