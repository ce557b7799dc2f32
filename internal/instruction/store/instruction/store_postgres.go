// Package instruction provides Store implementations for custom
// instructions.
package instruction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scubaai/internal/instruction/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
	"scubaai/pkg/platform/tx"
)

// PostgresStore persists instructions in the custom_instructions table. The
// partial unique index on (user_id) WHERE is_default backs the one-default
// invariant; writes that set a default clear the old one in the same
// transaction so the index never fires.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, instr models.Instruction) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if instr.IsDefault {
			if err := s.clearDefault(ctx, instr.UserID); err != nil {
				return err
			}
		}
		_, err := tx.Active(ctx, s.db).ExecContext(ctx, `
			INSERT INTO custom_instructions (id, user_id, name, content, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			instr.ID.String(), instr.UserID.String(), instr.Name, instr.Content,
			instr.IsDefault, instr.CreatedAt, instr.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert instruction: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetOwned(ctx context.Context, instrID id.InstructionID, userID id.UserID) (models.Instruction, error) {
	row := tx.Active(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, user_id, name, content, is_default, created_at, updated_at
		FROM custom_instructions
		WHERE id = $1 AND user_id = $2`,
		instrID.String(), userID.String(),
	)
	return scanInstruction(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Instruction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, content, is_default, created_at, updated_at
		FROM custom_instructions
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}
	defer rows.Close()

	var instrs []models.Instruction
	for rows.Next() {
		instr, err := scanInstruction(rows)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}
	return instrs, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, instr models.Instruction) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if instr.IsDefault {
			if err := s.clearDefault(ctx, instr.UserID); err != nil {
				return err
			}
		}
		res, err := tx.Active(ctx, s.db).ExecContext(ctx, `
			UPDATE custom_instructions
			SET name = $3, content = $4, is_default = $5, updated_at = $6
			WHERE id = $1 AND user_id = $2`,
			instr.ID.String(), instr.UserID.String(), instr.Name, instr.Content,
			instr.IsDefault, instr.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update instruction: %w", err)
		}
		return requireRow(res, "update instruction")
	})
}

func (s *PostgresStore) Delete(ctx context.Context, instrID id.InstructionID, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM custom_instructions WHERE id = $1 AND user_id = $2`,
		instrID.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete instruction: %w", err)
	}
	return requireRow(res, "delete instruction")
}

func (s *PostgresStore) GetDefault(ctx context.Context, userID id.UserID) (models.Instruction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, content, is_default, created_at, updated_at
		FROM custom_instructions
		WHERE user_id = $1 AND is_default`,
		userID.String(),
	)
	return scanInstruction(row)
}

func (s *PostgresStore) clearDefault(ctx context.Context, userID id.UserID) error {
	_, err := tx.Active(ctx, s.db).ExecContext(ctx,
		`UPDATE custom_instructions SET is_default = FALSE WHERE user_id = $1 AND is_default`,
		userID.String(),
	)
	if err != nil {
		return fmt.Errorf("clear default instruction: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row scanner) (models.Instruction, error) {
	var (
		instr   models.Instruction
		rawID   string
		rawUser string
	)
	err := row.Scan(&rawID, &rawUser, &instr.Name, &instr.Content,
		&instr.IsDefault, &instr.CreatedAt, &instr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Instruction{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Instruction{}, fmt.Errorf("scan instruction: %w", err)
	}
	instrID, err := id.ParseInstructionID(rawID)
	if err != nil {
		return models.Instruction{}, fmt.Errorf("parse instruction id: %w", err)
	}
	ownerID, err := id.ParseUserID(rawUser)
	if err != nil {
		return models.Instruction{}, fmt.Errorf("parse instruction user id: %w", err)
	}
	instr.ID = instrID
	instr.UserID = ownerID
	return instr, nil
}
