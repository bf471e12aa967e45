package repository

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userColumnNames = []string{
	"id", "username", "email", "password_hash", "full_name", "role",
	"is_active", "is_approved", "is_first_login", "created_at", "updated_at",
}

func userRow(id string, role string, active bool) []driver.Value {
	return []driver.Value{id, "user-" + id, nil, "$argon2id$x", "Name " + id, role, active, true, false, testNow, testNow}
}
