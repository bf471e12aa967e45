package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"caseportal/internal/config"
	"caseportal/internal/models"
	"caseportal/internal/repository"
	"caseportal/internal/security"
)

// OtpPurpose only selects the message wording; challenges are keyed by email.
type OtpPurpose string

const (
	OtpPurposeRegistration  OtpPurpose = "registration"
	OtpPurposePasswordReset OtpPurpose = "password_reset"
)

type OtpService struct {
	challenges OtpChallengeStore
	tokens     VerificationTokenStore
	mailer     MailSender
	hasher     *security.OTPHasher
	cfg        config.OTPConfig
	log        zerolog.Logger
	now        func() time.Time
	newCode    func() (string, error)
}

func NewOtpService(
	challenges OtpChallengeStore,
	tokens VerificationTokenStore,
	mailer MailSender,
	hasher *security.OTPHasher,
	cfg config.OTPConfig,
	log zerolog.Logger,
) *OtpService {
	return &OtpService{
		challenges: challenges,
		tokens:     tokens,
		mailer:     mailer,
		hasher:     hasher,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		newCode:    security.GenerateOTP,
	}
}

// RequestOTP issues a code for email and mails it. During the cooldown of a
// live challenge it returns a *RateLimitError and leaves the challenge alone.
// If delivery fails the reservation is released, so the caller is not rate
// limited by a code that never arrived.
func (s *OtpService) RequestOTP(ctx context.Context, email string, purpose OtpPurpose) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	now := s.now()
	challenge := models.OtpChallenge{
		Email:             email,
		CodeHash:          s.hasher.Hash(email, code),
		AttemptsRemaining: s.cfg.MaxAttempts,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.CodeTTL),
		CooldownUntil:     now.Add(s.cfg.Cooldown),
	}

	reserved, err := s.challenges.Reserve(ctx, challenge, now)
	if err != nil {
		return err
	}
	if !reserved {
		return s.rateLimited(ctx, email, now)
	}

	subject, body := otpMessage(purpose, code, s.cfg.CodeTTL)
	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		if relErr := s.challenges.Release(ctx, email, challenge.CodeHash); relErr != nil {
			s.log.Error().Err(relErr).Str("email", email).Msg("release otp reservation failed")
		}
		s.log.Warn().Err(err).Str("email", email).Msg("otp delivery failed")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.log.Info().Str("email", email).Str("purpose", string(purpose)).Msg("otp issued")
	return nil
}

func (s *OtpService) rateLimited(ctx context.Context, email string, now time.Time) error {
	until, err := s.challenges.CooldownUntil(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrChallengeNotFound) {
		return err
	}
	return &RateLimitError{RetryAfter: until.Sub(now)}
}

func otpMessage(purpose OtpPurpose, code string, ttl time.Duration) (string, string) {
	subject := "Your verification code"
	action := "verify your email address"
	if purpose == OtpPurposePasswordReset {
		subject = "Your password reset code"
		action = "reset your password"
	}
	body := fmt.Sprintf(
		"Use the code %s to %s.\n\nThe code expires in %d minutes. If you did not request it, ignore this message.\n",
		code, action, int(ttl.Minutes()),
	)
	return subject, body
}

type VerifyResult struct {
	VerificationToken string
	ExpiresAt         time.Time
	// RemainingAttempts is set on a wrong code for a challenge that was
	// still active. It is nil when there was no active challenge.
	RemainingAttempts *int
}

// VerifyOTP checks code against the active challenge for email. A match
// deletes the challenge and mints a verification token. A mismatch charges
// one attempt and returns ErrInvalidOrExpiredToken with the attempts left.
func (s *OtpService) VerifyOTP(ctx context.Context, email string, code string) (VerifyResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return VerifyResult{}, err
	}
	if !security.ValidOTPFormat(code) {
		return VerifyResult{}, invalid("code", "must be 6 digits")
	}

	now := s.now()
	challenge, err := s.challenges.FindActive(ctx, email, now)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return VerifyResult{}, ErrInvalidOrExpiredToken
		}
		return VerifyResult{}, err
	}

	if !s.hasher.Equal(s.hasher.Hash(email, code), challenge.CodeHash) {
		remaining, err := s.challenges.DecrementAttempts(ctx, email, challenge.CodeHash, now)
		if err != nil {
			if errors.Is(err, repository.ErrChallengeNotFound) {
				return VerifyResult{}, ErrInvalidOrExpiredToken
			}
			return VerifyResult{}, err
		}
		if remaining == 0 {
			s.log.Warn().Str("email", email).Msg("otp attempts exhausted")
		}
		return VerifyResult{RemainingAttempts: &remaining}, ErrInvalidOrExpiredToken
	}

	consumed, err := s.challenges.ConsumeMatch(ctx, email, challenge.CodeHash, now)
	if err != nil {
		return VerifyResult{}, err
	}
	if !consumed {
		return VerifyResult{}, ErrInvalidOrExpiredToken
	}

	token, tokenHash, err := security.GenerateVerificationToken()
	if err != nil {
		return VerifyResult{}, err
	}
	vt := models.VerificationToken{
		TokenHash: tokenHash,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.VerificationTTL),
	}
	if err := s.tokens.Create(ctx, vt); err != nil {
		return VerifyResult{}, err
	}

	s.log.Info().Str("email", email).Msg("otp verified")
	return VerifyResult{VerificationToken: token, ExpiresAt: vt.ExpiresAt}, nil
}

// ConsumeVerificationToken redeems token for email exactly once.
func (s *OtpService) ConsumeVerificationToken(ctx context.Context, email string, token string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if !security.WellFormedToken(token) {
		return ErrInvalidOrExpiredToken
	}

	if err := s.tokens.Consume(ctx, email, security.HashToken(token), s.now()); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	return nil
}

// CleanupExpired deletes challenges that are both dead and out of cooldown,
// and expired verification tokens.
func (s *OtpService) CleanupExpired(ctx context.Context) (int64, int64, error) {
	now := s.now()
	challenges, err := s.challenges.DeleteDead(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	tokens, err := s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return challenges, 0, err
	}
	if challenges > 0 || tokens > 0 {
		s.log.Info().
			Int64("challenges", challenges).
			Int64("tokens", tokens).
			Msg("expired otp state removed")
	}
	return challenges, tokens, nil
}
