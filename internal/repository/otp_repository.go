package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caseportal/internal/models"
)

// OtpChallengeRepository keeps one row per normalized email. Every
// read-modify-write is a single conditional statement.
type OtpChallengeRepository struct {
	db *sql.DB
}

func NewOtpChallengeRepository(db *sql.DB) *OtpChallengeRepository {
	return &OtpChallengeRepository{db: db}
}

// Reserve writes challenge unless a row for the same email is still within
// its cooldown and unexpired. It reports whether the write happened.
func (r *OtpChallengeRepository) Reserve(ctx context.Context, challenge models.OtpChallenge, now time.Time) (bool, error) {
	const query = `
		INSERT INTO otp_challenges (email, code_hash, attempts_remaining, created_at, expires_at, cooldown_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			attempts_remaining = EXCLUDED.attempts_remaining,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			cooldown_until = EXCLUDED.cooldown_until
		WHERE otp_challenges.cooldown_until <= $7 OR otp_challenges.expires_at <= $7
		RETURNING email
	`

	var email string
	err := r.db.QueryRowContext(ctx, query,
		challenge.Email,
		challenge.CodeHash,
		challenge.AttemptsRemaining,
		challenge.CreatedAt,
		challenge.ExpiresAt,
		challenge.CooldownUntil,
		now,
	).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reserve challenge: %w", err)
	}
	return true, nil
}

func (r *OtpChallengeRepository) CooldownUntil(ctx context.Context, email string) (time.Time, error) {
	const query = `SELECT cooldown_until FROM otp_challenges WHERE email = $1`
	var until time.Time
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&until); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrChallengeNotFound
		}
		return time.Time{}, fmt.Errorf("challenge cooldown: %w", err)
	}
	return until, nil
}

// FindActive returns the challenge only while it is unexpired and has attempts left.
func (r *OtpChallengeRepository) FindActive(ctx context.Context, email string, now time.Time) (models.OtpChallenge, error) {
	const query = `
		SELECT email, code_hash, attempts_remaining, created_at, expires_at, cooldown_until
		FROM otp_challenges
		WHERE email = $1 AND attempts_remaining > 0 AND expires_at > $2
	`
	var c models.OtpChallenge
	err := r.db.QueryRowContext(ctx, query, email, now).Scan(
		&c.Email,
		&c.CodeHash,
		&c.AttemptsRemaining,
		&c.CreatedAt,
		&c.ExpiresAt,
		&c.CooldownUntil,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OtpChallenge{}, ErrChallengeNotFound
		}
		return models.OtpChallenge{}, fmt.Errorf("find challenge: %w", err)
	}
	return c, nil
}

// ConsumeMatch deletes the active challenge carrying codeHash. Of concurrent
// callers at most one observes true.
func (r *OtpChallengeRepository) ConsumeMatch(ctx context.Context, email string, codeHash []byte, now time.Time) (bool, error) {
	const query = `
		DELETE FROM otp_challenges
		WHERE email = $1 AND code_hash = $2 AND attempts_remaining > 0 AND expires_at > $3
		RETURNING email
	`
	var deleted string
	if err := r.db.QueryRowContext(ctx, query, email, codeHash, now).Scan(&deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("consume challenge: %w", err)
	}
	return true, nil
}

// DecrementAttempts charges one failed attempt and returns what is left.
// Concurrent failures are each charged; the counter never goes below zero.
func (r *OtpChallengeRepository) DecrementAttempts(ctx context.Context, email string, codeHash []byte, now time.Time) (int, error) {
	const query = `
		UPDATE otp_challenges
		SET attempts_remaining = attempts_remaining - 1
		WHERE email = $1 AND code_hash = $2 AND attempts_remaining > 0 AND expires_at > $3
		RETURNING attempts_remaining
	`
	var remaining int
	if err := r.db.QueryRowContext(ctx, query, email, codeHash, now).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrChallengeNotFound
		}
		return 0, fmt.Errorf("decrement attempts: %w", err)
	}
	return remaining, nil
}

// Release drops a reservation whose code could not be delivered.
func (r *OtpChallengeRepository) Release(ctx context.Context, email string, codeHash []byte) error {
	const query = `DELETE FROM otp_challenges WHERE email = $1 AND code_hash = $2`
	if _, err := r.db.ExecContext(ctx, query, email, codeHash); err != nil {
		return fmt.Errorf("release challenge: %w", err)
	}
	return nil
}

// DeleteDead removes challenges that can neither be verified nor still hold a cooldown.
func (r *OtpChallengeRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		DELETE FROM otp_challenges
		WHERE (expires_at <= $1 OR attempts_remaining = 0) AND cooldown_until <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete dead challenges: %w", err)
	}
	return res.RowsAffected()
}
