package models

import "time"

// AuditLogEntry is write-once.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	ActorID   *string        `json:"actorId,omitempty"`
	Action    string         `json:"action"`
	TableName string         `json:"tableName"`
	RecordID  string         `json:"recordId"`
	OldValues map[string]any `json:"oldValues,omitempty"`
	NewValues map[string]any `json:"newValues,omitempty"`
	IPAddress *string        `json:"ipAddress,omitempty"`
	UserAgent *string        `json:"userAgent,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
