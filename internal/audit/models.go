// Package audit captures structured records of the actions users and admins
// take. Events flow through a non-blocking publisher into a background worker
// so the request path never waits on the audit trail.
package audit

import (
	"context"
	"time"

	id "scubaai/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	Subject   string
	Detail    string
}

// Well-known actions. Services emit these; dashboards group by them.
const (
	ActionUserRegistered      = "user_registered"
	ActionLoginSucceeded      = "login_succeeded"
	ActionLoginFailed         = "login_failed"
	ActionTokenRefreshed      = "token_refreshed"
	ActionLogout              = "logout"
	ActionPasswordChanged     = "password_changed"
	ActionUserDeactivated     = "user_deactivated"
	ActionUserReactivated     = "user_reactivated"
	ActionUserPromoted        = "user_promoted"
	ActionUserDemoted         = "user_demoted"
	ActionUserDeleted         = "user_deleted"
	ActionConversationCreated = "conversation_created"
	ActionConversationDeleted = "conversation_deleted"
	ActionMessageSent         = "message_sent"
	ActionStreamFallback      = "stream_fallback"
	ActionInstructionChanged  = "instruction_changed"
	ActionSettingChanged      = "setting_changed"
)

// Store persists audit events. Implementations must be safe for concurrent
// use; the worker and admin read paths share one instance.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event the worker persists. Used to fan events
// out to a message broker alongside the primary store.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
