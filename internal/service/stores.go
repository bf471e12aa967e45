package service

import (
	"context"
	"io"
	"time"

	"caseportal/internal/models"
)

// UserStore is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ExistsWithRole(ctx context.Context, role models.UserRole) (bool, error)
	UpdateProfile(ctx context.Context, user models.User, now time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id string, hash string, clearFirstLogin bool, now time.Time) error
	SetApproved(ctx context.Context, id string, approved bool, now time.Time) (models.User, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) (models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole, now time.Time) (models.User, error)
	Delete(ctx context.Context, id string) (models.User, error)
}

// SessionStore is implemented by repository.SessionRepository.
type SessionStore interface {
	ReplaceForUser(ctx context.Context, session models.Session) (int64, error)
	FindValid(ctx context.Context, tokenHash []byte, now time.Time) (models.Session, models.User, error)
	ListByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Touch(ctx context.Context, tokenHash []byte, ip string, userAgent string, now time.Time) error
}

// OtpChallengeStore is implemented by repository.OtpChallengeRepository.
type OtpChallengeStore interface {
	Reserve(ctx context.Context, challenge models.OtpChallenge, now time.Time) (bool, error)
	CooldownUntil(ctx context.Context, email string) (time.Time, error)
	FindActive(ctx context.Context, email string, now time.Time) (models.OtpChallenge, error)
	ConsumeMatch(ctx context.Context, email string, codeHash []byte, now time.Time) (bool, error)
	DecrementAttempts(ctx context.Context, email string, codeHash []byte, now time.Time) (int, error)
	Release(ctx context.Context, email string, codeHash []byte) error
	DeleteDead(ctx context.Context, now time.Time) (int64, error)
}

// VerificationTokenStore is implemented by repository.VerificationTokenRepository.
type VerificationTokenStore interface {
	Create(ctx context.Context, token models.VerificationToken) error
	Consume(ctx context.Context, email string, tokenHash []byte, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditStore is implemented by repository.AuditRepository.
type AuditStore interface {
	Insert(ctx context.Context, entry models.AuditLogEntry) error
	ListBetween(ctx context.Context, from, to time.Time) ([]models.AuditLogEntry, error)
}

// MailSender delivers a single message. Implementations own their retry policy.
type MailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// ObjectWriter stores archive objects.
type ObjectWriter interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}
