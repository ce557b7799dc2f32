// Package setting provides Store implementations for system settings.
package setting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"scubaai/internal/settings/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists settings in the system_settings table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, value, COALESCE(description, ''), updated_at
		FROM system_settings
		ORDER BY key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

func (s *PostgresStore) GetByID(ctx context.Context, settingID id.SettingID) (models.Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, value, COALESCE(description, ''), updated_at
		FROM system_settings
		WHERE id = $1`,
		settingID.String(),
	)
	return scanSetting(row)
}

func (s *PostgresStore) GetByKey(ctx context.Context, key string) (models.Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, value, COALESCE(description, ''), updated_at
		FROM system_settings
		WHERE key = $1`,
		key,
	)
	return scanSetting(row)
}

func (s *PostgresStore) Create(ctx context.Context, setting models.Setting) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_settings (id, key, value, description, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		setting.ID.String(), setting.Key, setting.Value, setting.Description, setting.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert setting: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert setting: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, setting models.Setting) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE system_settings
		SET value = $2, description = $3, updated_at = $4
		WHERE id = $1`,
		setting.ID.String(), setting.Value, setting.Description, setting.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return requireRow(res, "update setting")
}

func (s *PostgresStore) Delete(ctx context.Context, settingID id.SettingID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM system_settings WHERE id = $1`, settingID.String())
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return requireRow(res, "delete setting")
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

func scanSetting(row scanner) (models.Setting, error) {
	var (
		setting models.Setting
		rawID   string
	)
	err := row.Scan(&rawID, &setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Setting{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Setting{}, fmt.Errorf("scan setting: %w", err)
	}
	settingID, err := id.ParseSettingID(rawID)
	if err != nil {
		return models.Setting{}, fmt.Errorf("parse setting id: %w", err)
	}
	setting.ID = settingID
	return setting, nil
}
