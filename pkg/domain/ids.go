// Package domain holds typed identifiers and small value types shared across
// modules. Typed IDs prevent cross-entity mixups at compile time; Parse
// functions enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "scubaai/pkg/domain-errors"
)

// Typed identifiers for the entities the backend tracks.
type (
	UserID         uuid.UUID
	SessionID      uuid.UUID
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	InstructionID  uuid.UUID
	SettingID      uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id InstructionID) String() string  { return uuid.UUID(id).String() }
func (id SettingID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ConversationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id InstructionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SettingID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// NewUserID and friends mint fresh identifiers.
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }
func NewConversationID() ConversationID { return ConversationID(uuid.New()) }
func NewMessageID() MessageID           { return MessageID(uuid.New()) }
func NewInstructionID() InstructionID   { return InstructionID(uuid.New()) }
func NewSettingID() SettingID           { return SettingID(uuid.New()) }

// parseUUID is the single validation path for all ID types: well-formed,
// non-empty, non-nil.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be nil")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseSessionID constructs a SessionID from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseConversationID constructs a ConversationID from external input.
func ParseConversationID(s string) (ConversationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ConversationID{}, err
	}
	return ConversationID(u), nil
}

// ParseMessageID constructs a MessageID from external input.
func ParseMessageID(s string) (MessageID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(u), nil
}

// ParseInstructionID constructs an InstructionID from external input.
func ParseInstructionID(s string) (InstructionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return InstructionID{}, err
	}
	return InstructionID(u), nil
}

// ParseSettingID constructs a SettingID from external input.
func ParseSettingID(s string) (SettingID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SettingID{}, err
	}
	return SettingID(u), nil
}

// IDs travel through JSON as their canonical UUID string.

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id ConversationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id MessageID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id InstructionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id SettingID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

func (id *ConversationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ConversationID(u)
	return nil
}

func (id *MessageID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

func (id *InstructionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = InstructionID(u)
	return nil
}

func (id *SettingID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SettingID(u)
	return nil
}
