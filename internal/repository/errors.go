package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrChallengeNotFound = errors.New("otp challenge not found")
	ErrTokenNotFound     = errors.New("verification token not found")
	ErrConflict          = errors.New("unique constraint violated")
	ErrLastSuperAdmin    = errors.New("last active superadmin")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}
