package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caseportal/internal/models"
)

type VerificationTokenRepository struct {
	db *sql.DB
}

func NewVerificationTokenRepository(db *sql.DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

func (r *VerificationTokenRepository) Create(ctx context.Context, token models.VerificationToken) error {
	const query = `
		INSERT INTO verification_tokens (token_hash, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, token.TokenHash, token.Email, token.CreatedAt, token.ExpiresAt); err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

// Consume is check-and-delete in one statement: the row must match both the
// token hash and the email and be unexpired.
func (r *VerificationTokenRepository) Consume(ctx context.Context, email string, tokenHash []byte, now time.Time) error {
	const query = `
		DELETE FROM verification_tokens
		WHERE token_hash = $1 AND email = $2 AND expires_at > $3
		RETURNING email
	`
	var deleted string
	if err := r.db.QueryRowContext(ctx, query, tokenHash, email, now).Scan(&deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("consume verification token: %w", err)
	}
	return nil
}

func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM verification_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}
