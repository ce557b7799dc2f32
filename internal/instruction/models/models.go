// Package models defines the custom-instruction types and request shapes.
package models

import (
	"strings"
	"time"

	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

const maxNameLength = 100

// Instruction is a reusable system prompt owned by one user. At most one
// instruction per user is the default.
type Instruction struct {
	ID        id.InstructionID `json:"id"`
	UserID    id.UserID        `json:"user_id"`
	Name      string           `json:"name"`
	Content   string           `json:"content"`
	IsDefault bool             `json:"is_default"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CreateInstructionRequest adds a new instruction; marking it default clears
// any previous default.
type CreateInstructionRequest struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"is_default"`
}

func (r *CreateInstructionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Content = strings.TrimSpace(r.Content)
}

func (r CreateInstructionRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name cannot be empty")
	}
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeBadRequest, "name too long")
	}
	if r.Content == "" {
		return dErrors.New(dErrors.CodeBadRequest, "content cannot be empty")
	}
	return nil
}

// UpdateInstructionRequest changes an instruction; nil fields are left
// untouched.
type UpdateInstructionRequest struct {
	Name      *string `json:"name,omitempty"`
	Content   *string `json:"content,omitempty"`
	IsDefault *bool   `json:"is_default,omitempty"`
}

func (r *UpdateInstructionRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.Content != nil {
		trimmed := strings.TrimSpace(*r.Content)
		r.Content = &trimmed
	}
}

func (r UpdateInstructionRequest) Validate() error {
	if r.Name != nil {
		if *r.Name == "" {
			return dErrors.New(dErrors.CodeBadRequest, "name cannot be empty")
		}
		if len(*r.Name) > maxNameLength {
			return dErrors.New(dErrors.CodeBadRequest, "name too long")
		}
	}
	if r.Content != nil && *r.Content == "" {
		return dErrors.New(dErrors.CodeBadRequest, "content cannot be empty")
	}
	return nil
}
