package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"caseportal/internal/ids"
	"caseportal/internal/models"
)

const (
	ActionLogin          = "user.login"
	ActionLogout         = "user.logout"
	ActionCreate         = "user.create"
	ActionUpdateProfile  = "user.update"
	ActionRoleChange     = "user.role_change"
	ActionActivate       = "user.activate"
	ActionDeactivate     = "user.deactivate"
	ActionApprove        = "user.approve"
	ActionDelete         = "user.delete"
	ActionPasswordChange = "user.password_change"
	ActionPasswordReset  = "user.password_reset"
)

// AuditEvent describes one security-relevant change. ActorID is nil for
// system-initiated events.
type AuditEvent struct {
	ActorID   *string
	Action    string
	TableName string
	RecordID  string
	OldValues map[string]any
	NewValues map[string]any
	IPAddress string
	UserAgent string
}

type AuditLogger struct {
	store AuditStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuditLogger(store AuditStore, log zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Record appends the entry synchronously.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) (models.AuditLogEntry, error) {
	entry := models.AuditLogEntry{
		ID:        ids.New(),
		ActorID:   event.ActorID,
		Action:    event.Action,
		TableName: event.TableName,
		RecordID:  event.RecordID,
		OldValues: event.OldValues,
		NewValues: event.NewValues,
		IPAddress: optional(event.IPAddress),
		UserAgent: optional(event.UserAgent),
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.Insert(ctx, entry); err != nil {
		return models.AuditLogEntry{}, fmt.Errorf("record audit %s: %w", event.Action, err)
	}
	return entry, nil
}

// RecordQuietly is Record for callers whose outcome must not depend on the
// audit write. Failures are logged.
func (a *AuditLogger) RecordQuietly(ctx context.Context, event AuditEvent) {
	if _, err := a.Record(ctx, event); err != nil {
		a.log.Error().
			Err(err).
			Str("action", event.Action).
			Str("record_id", event.RecordID).
			Msg("audit write failed")
	}
}

func (a *AuditLogger) ListSince(ctx context.Context, from, to time.Time) ([]models.AuditLogEntry, error) {
	return a.store.ListBetween(ctx, from, to)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func actorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// userSnapshot is the audited view of a user; credentials are never included.
func userSnapshot(u models.User) map[string]any {
	return map[string]any{
		"username":    u.Username,
		"email":       u.EmailOrEmpty(),
		"full_name":   u.FullName,
		"role":        string(u.Role),
		"is_active":   u.IsActive,
		"is_approved": u.IsApproved,
	}
}
