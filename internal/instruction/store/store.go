// Package store declares the persistence contract for custom instructions.
// Implementations return sentinel.ErrNotFound for missing or foreign rows and
// keep the one-default-per-user invariant: writing a default row clears the
// previous default in the same transaction.
package store

import (
	"context"

	"scubaai/internal/instruction/models"
	id "scubaai/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, instr models.Instruction) error
	GetOwned(ctx context.Context, instrID id.InstructionID, userID id.UserID) (models.Instruction, error)
	// ListByUser returns the user's instructions, default first, then newest.
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Instruction, error)
	Update(ctx context.Context, instr models.Instruction) error
	Delete(ctx context.Context, instrID id.InstructionID, userID id.UserID) error
	// GetDefault loads the user's default instruction, ErrNotFound when unset.
	GetDefault(ctx context.Context, userID id.UserID) (models.Instruction, error)
}
