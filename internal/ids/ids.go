// Package ids mints identifiers for persisted records.
package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a time-sortable id used for sessions and audit entries.
func New() string {
	return ksuid.New().String()
}

// NewUserID returns the primary key for a new user row.
func NewUserID() string {
	return uuid.NewString()
}
