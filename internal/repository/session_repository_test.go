package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseportal/internal/models"
)

var sessionColumnNames = []string{
	"id", "user_id", "token_hash", "ip_address", "user_agent", "device_name", "created_at", "last_seen_at", "expires_at",
}

func TestSessionRepository_ReplaceForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	session := models.Session{
		ID:         "s-2",
		UserID:     "u-1",
		TokenHash:  []byte("hash-2"),
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl",
		DeviceName: "laptop",
		CreatedAt:  testNow,
		ExpiresAt:  testNow.Add(12 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s-2", "u-1", []byte("hash-2"), "10.0.0.1", "curl", "laptop", testNow, testNow.Add(12*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	revoked, err := repo.ReplaceForUser(context.Background(), session)
	require.NoError(t, err)
	assert.EqualValues(t, 1, revoked)
}

func TestSessionRepository_ReplaceForUserRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO sessions`).WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	_, err := repo.ReplaceForUser(context.Background(), models.Session{ID: "s-1", UserID: "u-1"})
	require.Error(t, err)
}

func TestSessionRepository_ReplaceForUserMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ReplaceForUser(context.Background(), models.Session{ID: "s-1", UserID: "gone"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionRepository_FindValid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	cols := append(append([]string{}, sessionColumnNames...), userColumnNames...)
	row := []driver.Value{"s-1", "u-1", []byte("h"), "10.0.0.1", "curl", "", testNow, testNow, testNow.Add(time.Hour)}
	row = append(row, userRow("u-1", "staff", true)...)

	mock.ExpectQuery(`FROM sessions s\s+JOIN users u ON u.id = s.user_id\s+WHERE s.token_hash = \$1 AND s.expires_at > \$2`).
		WithArgs([]byte("h"), testNow).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	session, user, err := repo.FindValid(context.Background(), []byte("h"), testNow)
	require.NoError(t, err)
	assert.Equal(t, "s-1", session.ID)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, models.UserRoleStaff, user.Role)
}

func TestSessionRepository_FindValidMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`FROM sessions s`).WillReturnRows(sqlmock.NewRows(sessionColumnNames))

	_, _, err := repo.FindValid(context.Background(), []byte("h"), testNow)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`FROM sessions\s+WHERE user_id = \$1 AND expires_at > \$2`).
		WithArgs("u-1", testNow).
		WillReturnRows(sqlmock.NewRows(sessionColumnNames).
			AddRow("s-1", "u-1", []byte("h"), "", "", "", testNow, testNow, testNow.Add(time.Hour)))

	sessions, err := repo.ListByUser(context.Background(), "u-1", testNow)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-1", sessions[0].ID)
}

func TestSessionRepository_DeleteExpiredIsStrict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestSessionRepository_DeleteByTokenHashIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE token_hash = \$1`).
		WithArgs([]byte("gone")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.DeleteByTokenHash(context.Background(), []byte("gone"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
