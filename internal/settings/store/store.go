// Package store declares the persistence contract for system settings.
// Implementations return sentinel.ErrNotFound for missing rows and
// sentinel.ErrConflict for duplicate keys.
package store

import (
	"context"

	"scubaai/internal/settings/models"
	id "scubaai/pkg/domain"
)

type Store interface {
	// List returns all settings ordered by key.
	List(ctx context.Context) ([]models.Setting, error)
	GetByID(ctx context.Context, settingID id.SettingID) (models.Setting, error)
	GetByKey(ctx context.Context, key string) (models.Setting, error)
	Create(ctx context.Context, setting models.Setting) error
	Update(ctx context.Context, setting models.Setting) error
	Delete(ctx context.Context, settingID id.SettingID) error
}
