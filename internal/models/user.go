package models

import "time"

type UserRole string

const (
	UserRoleSuperAdmin UserRole = "superadmin"
	UserRoleAdmin      UserRole = "admin"
	UserRoleStaff      UserRole = "staff"
	UserRoleApplicant  UserRole = "applicant"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleSuperAdmin, UserRoleAdmin, UserRoleStaff, UserRoleApplicant:
		return true
	}
	return false
}

// User is the identity record. PasswordHash never leaves the service layer;
// callers receive a User through Sanitized.
type User struct {
	ID           string
	Username     string
	Email        *string
	PasswordHash string
	FullName     string
	Role         UserRole
	IsActive     bool
	IsApproved   bool
	IsFirstLogin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy without credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

type Session struct {
	ID         string
	UserID     string
	TokenHash  []byte
	IPAddress  string
	UserAgent  string
	DeviceName string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// ValidAt reports whether the session is still usable at now.
func (s Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
