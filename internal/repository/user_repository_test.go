package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseportal/internal/models"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	email := "ana@example.gov"
	user := models.User{
		ID:           "u-1",
		Username:     "ana",
		Email:        &email,
		PasswordHash: "$argon2id$x",
		Role:         models.UserRoleStaff,
		IsActive:     true,
		IsFirstLogin: true,
		CreatedAt:    testNow,
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u-1", "ana", email, "$argon2id$x", "", "staff", true, false, true, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), user))
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), models.User{ID: "u-1", Username: "ana", Role: models.UserRoleStaff})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userColumnNames).
		AddRow("u-1", "Ana", "ana@example.gov", "$argon2id$x", "Ana", "admin", true, true, false, testNow, testNow)
	mock.ExpectQuery(`FROM users WHERE lower\(username\) = lower\(\$1\)`).
		WithArgs("ANA").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "ANA")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, models.UserRoleAdmin, user.Role)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ana@example.gov", *user.Email)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_NullEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("u-2", "applicant", true)...))

	user, err := repo.GetByID(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Nil(t, user.Email)
	assert.Equal(t, "", user.EmailOrEmpty())
}

func TestUserRepository_UpdatePasswordMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users\s+SET password_hash`).
		WithArgs("u-9", "hash", true, testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "u-9", "hash", true, testNow)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_DeactivateLastSuperAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE role = 'superadmin' AND is_active\s+ORDER BY id\s+FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("root"))
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("root", "superadmin", true)...))
	mock.ExpectRollback()

	_, err := repo.SetActive(context.Background(), "root", false, testNow)
	assert.ErrorIs(t, err, ErrLastSuperAdmin)
}

func TestUserRepository_DemoteSuperAdminWhenAnotherRemains(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("root").AddRow("root2"))
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("root", "superadmin", true)...))
	mock.ExpectQuery(`UPDATE users SET role = \$2`).
		WithArgs("root", "admin", testNow).
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("root", "admin", true)...))
	mock.ExpectCommit()

	user, err := repo.UpdateRole(context.Background(), "root", models.UserRoleAdmin, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, user.Role)
}

func TestUserRepository_DeleteRegularUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("root"))
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u-3").
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("u-3", "staff", true)...))
	mock.ExpectQuery(`DELETE FROM users WHERE id = \$1 RETURNING`).
		WithArgs("u-3").
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(userRow("u-3", "staff", true)...))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "u-3")
	require.NoError(t, err)
	assert.Equal(t, "u-3", deleted.ID)
}

func TestUserRepository_GuardedDBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), "u-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
