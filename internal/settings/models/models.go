// Package models defines system settings, user preferences and the data
// export document.
package models

import (
	"strings"
	"time"

	authmodels "scubaai/internal/auth/models"
	chatmodels "scubaai/internal/chat/models"
	instrmodels "scubaai/internal/instruction/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

// Setting is one admin-managed configuration row, keyed uniquely.
type Setting struct {
	ID          id.SettingID `json:"id"`
	Key         string       `json:"key"`
	Value       string       `json:"value"`
	Description string       `json:"description,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateSettingRequest adds a new setting; a duplicate key is a conflict.
type CreateSettingRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (r *CreateSettingRequest) Normalize() {
	r.Key = strings.TrimSpace(r.Key)
	r.Description = strings.TrimSpace(r.Description)
}

func (r CreateSettingRequest) Validate() error {
	if r.Key == "" {
		return dErrors.New(dErrors.CodeBadRequest, "key cannot be empty")
	}
	return nil
}

// UpdateSettingRequest changes a setting's value or description; nil fields
// are left untouched. Keys are immutable.
type UpdateSettingRequest struct {
	Value       *string `json:"value,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Preferences is the per-user view returned by GET /settings/preferences.
type Preferences struct {
	Profile            authmodels.Profile        `json:"profile"`
	DefaultInstruction *instrmodels.Instruction  `json:"default_instruction,omitempty"`
}

// Export is the caller's full data as one document.
type Export struct {
	ExportedAt    time.Time                       `json:"exported_at"`
	Profile       authmodels.Profile              `json:"profile"`
	Instructions  []instrmodels.Instruction       `json:"instructions"`
	Conversations []chatmodels.ConversationDetail `json:"conversations"`
}
