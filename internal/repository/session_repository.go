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

const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, device_name, created_at, last_seen_at, expires_at`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row rowScanner, session *models.Session, extra ...any) error {
	dest := []any{
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.DeviceName,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// ReplaceForUser inserts session and deletes every other session of the same
// user in one transaction. It returns how many sessions were revoked.
//
// The user row is locked first so that concurrent logins of one user run
// one after the other; otherwise neither DELETE sees the other's INSERT.
func (r *SessionRepository) ReplaceForUser(ctx context.Context, session models.Session) (int64, error) {
	const lockQuery = `SELECT id FROM users WHERE id = $1 FOR UPDATE`
	const deleteQuery = `DELETE FROM sessions WHERE user_id = $1`
	const insertQuery = `
		INSERT INTO sessions (
			` + sessionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7, $8
		)
	`

	var revoked int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var locked string
		if err := tx.QueryRowContext(ctx, lockQuery, session.UserID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		res, err := tx.ExecContext(ctx, deleteQuery, session.UserID)
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		revoked, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, insertQuery,
			session.ID,
			session.UserID,
			session.TokenHash,
			session.IPAddress,
			session.UserAgent,
			session.DeviceName,
			session.CreatedAt,
			session.ExpiresAt,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

// FindValid returns the unexpired session for tokenHash joined with its user.
func (r *SessionRepository) FindValid(ctx context.Context, tokenHash []byte, now time.Time) (models.Session, models.User, error) {
	const query = `
		SELECT s.id, s.user_id, s.token_hash, s.ip_address, s.user_agent, s.device_name, s.created_at, s.last_seen_at, s.expires_at,
		       u.id, u.username, u.email, u.password_hash, u.full_name, u.role, u.is_active, u.is_approved, u.is_first_login, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > $2
	`

	var (
		session models.Session
		user    models.User
		email   sql.NullString
	)
	err := scanSession(r.db.QueryRowContext(ctx, query, tokenHash, now), &session,
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
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, models.User{}, ErrSessionNotFound
		}
		return models.Session{}, models.User{}, fmt.Errorf("find session: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}
	return session, user, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY last_seen_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteByTokenHash is idempotent; a missing row is not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash []byte) (int64, error) {
	const query = `DELETE FROM sessions WHERE token_hash = $1`
	res, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return res.RowsAffected()
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions with expires_at strictly before now, so a
// session expiring exactly at now is left for the next sweep.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SessionRepository) Touch(ctx context.Context, tokenHash []byte, ip string, userAgent string, now time.Time) error {
	const query = `
		UPDATE sessions
		SET last_seen_at = $4,
		    ip_address = COALESCE(NULLIF($2, ''), ip_address),
		    user_agent = COALESCE(NULLIF($3, ''), user_agent)
		WHERE token_hash = $1 AND expires_at > $4
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, ip, userAgent, now); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
