package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseportal/internal/models"
)

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	actor := "u-1"
	entry := models.AuditLogEntry{
		ID:        "a-1",
		ActorID:   &actor,
		Action:    "USER_LOGIN",
		TableName: "users",
		RecordID:  "u-1",
		NewValues: map[string]any{"username": "ana"},
		CreatedAt: testNow,
	}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("a-1", "u-1", "USER_LOGIN", "users", "u-1", nil, []byte(`{"username":"ana"}`), nil, nil, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), entry))
}

func TestAuditRepository_ListBetween(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	cols := []string{"id", "actor_id", "action", "table_name", "record_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}
	mock.ExpectQuery(`FROM audit_logs\s+WHERE created_at >= \$1 AND created_at < \$2`).
		WithArgs(testNow, testNow.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-1", nil, "USER_LOGOUT", "sessions", "s-1", nil, []byte(`{"reason":"logout"}`), "10.0.0.1", nil, testNow))

	entries, err := repo.ListBetween(context.Background(), testNow, testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	require.NotNil(t, entries[0].IPAddress)
	assert.Equal(t, "10.0.0.1", *entries[0].IPAddress)
	assert.Equal(t, "logout", entries[0].NewValues["reason"])
	assert.Nil(t, entries[0].OldValues)
}
