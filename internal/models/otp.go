package models

import "time"

// OtpChallenge is the outstanding code for one normalized email. A challenge
// with AttemptsRemaining == 0 is locked: it is never accepted but keeps its
// cooldown until swept.
type OtpChallenge struct {
	Email             string
	CodeHash          []byte
	AttemptsRemaining int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	CooldownUntil     time.Time
}

func (c OtpChallenge) ActiveAt(now time.Time) bool {
	return c.AttemptsRemaining > 0 && now.Before(c.ExpiresAt)
}

type VerificationToken struct {
	TokenHash []byte
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
