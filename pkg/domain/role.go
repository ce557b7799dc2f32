package domain

import dErrors "scubaai/pkg/domain-errors"

// ChatRole identifies who authored a chat message. The values mirror the
// upstream completion API so no translation is needed at the provider edge.
//
// Usage: construct via ParseChatRole at trust boundaries; direct casting
// bypasses validation.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// validChatRoles is the single source of truth for valid roles.
var validChatRoles = map[ChatRole]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
}

// ParseChatRole constructs a ChatRole from external input.
func ParseChatRole(s string) (ChatRole, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "role cannot be empty")
	}
	r := ChatRole(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r ChatRole) IsValid() bool {
	return validChatRoles[r]
}

// String returns the string representation of the role.
func (r ChatRole) String() string {
	return string(r)
}
