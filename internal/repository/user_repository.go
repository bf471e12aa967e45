package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caseportal/internal/dbx"
	"caseportal/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, role, is_active, is_approved, is_first_login, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		user  models.User
		email sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.IsActive,
		&user.IsApproved,
		&user.IsFirstLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, password_hash, full_name, role, is_active, is_approved, is_first_login, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.IsApproved,
		user.IsFirstLogin,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) ExistsWithRole(ctx context.Context, role models.UserRole) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, role).Scan(&exists); err != nil {
		return false, fmt.Errorf("role exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user models.User, now time.Time) (models.User, error) {
	const query = `
		UPDATE users
		SET username = $2, email = $3, full_name = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.FullName, now))
	if err != nil && isUniqueViolation(err) {
		return models.User{}, ErrConflict
	}
	return updated, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash string, clearFirstLogin bool, now time.Time) error {
	const query = `
		UPDATE users
		SET password_hash = $2,
		    is_first_login = CASE WHEN $3 THEN FALSE ELSE is_first_login END,
		    updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, hash, clearFirstLogin, now)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetApproved(ctx context.Context, id string, approved bool, now time.Time) (models.User, error) {
	const query = `
		UPDATE users SET is_approved = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, approved, now))
}

// SetActive toggles is_active. Deactivating the last active superadmin fails
// with ErrLastSuperAdmin.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) (models.User, error) {
	const query = `
		UPDATE users SET is_active = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns

	return r.guarded(ctx, id, !active, func(ctx context.Context, tx dbx.DBTX) (models.User, error) {
		return scanUser(tx.QueryRowContext(ctx, query, id, active, now))
	})
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole, now time.Time) (models.User, error) {
	const query = `
		UPDATE users SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns

	return r.guarded(ctx, id, role != models.UserRoleSuperAdmin, func(ctx context.Context, tx dbx.DBTX) (models.User, error) {
		return scanUser(tx.QueryRowContext(ctx, query, id, role, now))
	})
}

// Delete removes the user; sessions cascade. Returns the row as it was.
func (r *UserRepository) Delete(ctx context.Context, id string) (models.User, error) {
	const query = `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns

	return r.guarded(ctx, id, true, func(ctx context.Context, tx dbx.DBTX) (models.User, error) {
		return scanUser(tx.QueryRowContext(ctx, query, id))
	})
}

// guarded runs mutate in a transaction that first locks the active superadmin
// rows, then the target row. When removesSuperAdmin is set and the target is
// the only active superadmin, mutate is not called.
func (r *UserRepository) guarded(
	ctx context.Context,
	id string,
	removesSuperAdmin bool,
	mutate func(ctx context.Context, tx dbx.DBTX) (models.User, error),
) (models.User, error) {
	const lockSuperAdmins = `
		SELECT id FROM users
		WHERE role = 'superadmin' AND is_active
		ORDER BY id
		FOR UPDATE
	`
	const lockTarget = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	var result models.User
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, lockSuperAdmins)
		if err != nil {
			return fmt.Errorf("lock superadmins: %w", err)
		}
		active := 0
		for rows.Next() {
			active++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("lock superadmins: %w", err)
		}
		rows.Close()

		target, err := scanUser(tx.QueryRowContext(ctx, lockTarget, id))
		if err != nil {
			return err
		}

		if removesSuperAdmin && target.Role == models.UserRoleSuperAdmin && target.IsActive && active <= 1 {
			return ErrLastSuperAdmin
		}

		result, err = mutate(ctx, tx)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return result, nil
}
