package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"caseportal/internal/config"
	"caseportal/internal/models"
	"caseportal/internal/repository"
	"caseportal/internal/security"
)

var testParams = security.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]models.User{}}
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrConflict
		}
		if u.Email != nil && user.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	return m.find(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Email != nil && strings.EqualFold(*u.Email, email) })
}

func (m *memUsers) ExistsWithRole(_ context.Context, role models.UserRole) (bool, error) {
	_, err := m.find(func(u models.User) bool { return u.Role == role })
	return err == nil, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, user models.User, now time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[user.ID]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	for id, other := range m.users {
		if id != user.ID && strings.EqualFold(other.Username, user.Username) {
			return models.User{}, repository.ErrConflict
		}
	}
	u.Username, u.Email, u.FullName, u.UpdatedAt = user.Username, user.Email, user.FullName, now
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id string, hash string, clearFirstLogin bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	if clearFirstLogin {
		u.IsFirstLogin = false
	}
	u.UpdatedAt = now
	m.users[id] = u
	return nil
}

func (m *memUsers) mutate(id string, removesSuperAdmin bool, fn func(*models.User)) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	if removesSuperAdmin && u.Role == models.UserRoleSuperAdmin && u.IsActive {
		active := 0
		for _, other := range m.users {
			if other.Role == models.UserRoleSuperAdmin && other.IsActive {
				active++
			}
		}
		if active <= 1 {
			return models.User{}, repository.ErrLastSuperAdmin
		}
	}
	fn(&u)
	m.users[id] = u
	return u, nil
}

func (m *memUsers) SetApproved(_ context.Context, id string, approved bool, now time.Time) (models.User, error) {
	return m.mutate(id, false, func(u *models.User) { u.IsApproved, u.UpdatedAt = approved, now })
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool, now time.Time) (models.User, error) {
	return m.mutate(id, !active, func(u *models.User) { u.IsActive, u.UpdatedAt = active, now })
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role models.UserRole, now time.Time) (models.User, error) {
	return m.mutate(id, role != models.UserRoleSuperAdmin, func(u *models.User) { u.Role, u.UpdatedAt = role, now })
}

func (m *memUsers) Delete(_ context.Context, id string) (models.User, error) {
	u, err := m.mutate(id, true, func(*models.User) {})
	if err != nil {
		return models.User{}, err
	}
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
	return u, nil
}

type memSessions struct {
	mu       sync.Mutex
	users    *memUsers
	sessions map[string]models.Session
	failDel  error
}

func newMemSessions(users *memUsers) *memSessions {
	return &memSessions{users: users, sessions: map[string]models.Session{}}
}

func (m *memSessions) ReplaceForUser(_ context.Context, session models.Session) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var revoked int64
	for key, s := range m.sessions {
		if s.UserID == session.UserID {
			delete(m.sessions, key)
			revoked++
		}
	}
	m.sessions[string(session.TokenHash)] = session
	return revoked, nil
}

func (m *memSessions) FindValid(ctx context.Context, tokenHash []byte, now time.Time) (models.Session, models.User, error) {
	m.mu.Lock()
	s, ok := m.sessions[string(tokenHash)]
	m.mu.Unlock()
	if !ok || !now.Before(s.ExpiresAt) {
		return models.Session{}, models.User{}, repository.ErrSessionNotFound
	}
	u, err := m.users.GetByID(ctx, s.UserID)
	if err != nil {
		return models.Session{}, models.User{}, repository.ErrSessionNotFound
	}
	return s, u, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID string, now time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID && now.Before(s.ExpiresAt) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, tokenHash []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel != nil {
		return 0, m.failDel
	}
	if _, ok := m.sessions[string(tokenHash)]; !ok {
		return 0, nil
	}
	delete(m.sessions, string(tokenHash))
	return 1, nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, key)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, key)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) Touch(_ context.Context, tokenHash []byte, ip string, userAgent string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[string(tokenHash)]
	if !ok {
		return nil
	}
	s.LastSeenAt = now
	if ip != "" {
		s.IPAddress = ip
	}
	if userAgent != "" {
		s.UserAgent = userAgent
	}
	m.sessions[string(tokenHash)] = s
	return nil
}

func (m *memSessions) add(s models.Session) {
	m.mu.Lock()
	m.sessions[string(s.TokenHash)] = s
	m.mu.Unlock()
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memChallenges struct {
	mu   sync.Mutex
	rows map[string]models.OtpChallenge
}

func newMemChallenges() *memChallenges {
	return &memChallenges{rows: map[string]models.OtpChallenge{}}
}

func (m *memChallenges) Reserve(_ context.Context, c models.OtpChallenge, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[c.Email]; ok && now.Before(existing.CooldownUntil) && now.Before(existing.ExpiresAt) {
		return false, nil
	}
	m.rows[c.Email] = c
	return true, nil
}

func (m *memChallenges) CooldownUntil(_ context.Context, email string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	if !ok {
		return time.Time{}, repository.ErrChallengeNotFound
	}
	return c.CooldownUntil, nil
}

func (m *memChallenges) FindActive(_ context.Context, email string, now time.Time) (models.OtpChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	if !ok || !c.ActiveAt(now) {
		return models.OtpChallenge{}, repository.ErrChallengeNotFound
	}
	return c, nil
}

func (m *memChallenges) ConsumeMatch(_ context.Context, email string, codeHash []byte, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	if !ok || !bytes.Equal(c.CodeHash, codeHash) || !c.ActiveAt(now) {
		return false, nil
	}
	delete(m.rows, email)
	return true, nil
}

func (m *memChallenges) DecrementAttempts(_ context.Context, email string, codeHash []byte, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	if !ok || !bytes.Equal(c.CodeHash, codeHash) || !c.ActiveAt(now) {
		return 0, repository.ErrChallengeNotFound
	}
	c.AttemptsRemaining--
	m.rows[email] = c
	return c.AttemptsRemaining, nil
}

func (m *memChallenges) Release(_ context.Context, email string, codeHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[email]; ok && bytes.Equal(c.CodeHash, codeHash) {
		delete(m.rows, email)
	}
	return nil
}

func (m *memChallenges) DeleteDead(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for email, c := range m.rows {
		if (!now.Before(c.ExpiresAt) || c.AttemptsRemaining == 0) && !now.Before(c.CooldownUntil) {
			delete(m.rows, email)
			n++
		}
	}
	return n, nil
}

func (m *memChallenges) get(email string) (models.OtpChallenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[email]
	return c, ok
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]models.VerificationToken
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[string]models.VerificationToken{}}
}

func (m *memTokens) Create(_ context.Context, t models.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[string(t.TokenHash)] = t
	return nil
}

func (m *memTokens) Consume(_ context.Context, email string, tokenHash []byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[string(tokenHash)]
	if !ok || t.Email != email || !now.Before(t.ExpiresAt) {
		return repository.ErrTokenNotFound
	}
	delete(m.rows, string(tokenHash))
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, t := range m.rows {
		if !now.Before(t.ExpiresAt) {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
	fail    error
}

func (m *memAudit) Insert(_ context.Context, entry models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) ListBetween(_ context.Context, from, to time.Time) ([]models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLogEntry
	for _, e := range m.entries {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *memObjects) PutObject(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

type authFixture struct {
	svc      *AuthService
	users    *memUsers
	sessions *memSessions
	audit    *memAudit
	hasher   *security.PasswordHasher
	clock    *clock
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			SessionTTL:        time.Hour,
			MinPasswordLength: 8,
		},
		OTP: config.OTPConfig{
			CodeTTL:         10 * time.Minute,
			MaxAttempts:     3,
			Cooldown:        time.Minute,
			VerificationTTL: 15 * time.Minute,
		},
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hasher, err := security.NewPasswordHasher(testParams)
	require.NoError(t, err)

	c := newClock()
	users := newMemUsers()
	sessions := newMemSessions(users)
	auditStore := &memAudit{}
	audit := NewAuditLogger(auditStore, zerolog.Nop())
	audit.now = c.Now

	svc := NewAuthService(users, sessions, hasher, audit, testConfig(), zerolog.Nop())
	svc.now = c.Now

	return &authFixture{
		svc:      svc,
		users:    users,
		sessions: sessions,
		audit:    auditStore,
		hasher:   hasher,
		clock:    c,
	}
}

func (f *authFixture) seedUser(t *testing.T, id, username string, role models.UserRole, password string) models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	email := username + "@example.gov"
	user := models.User{
		ID:           id,
		Username:     username,
		Email:        &email,
		PasswordHash: hash,
		FullName:     strings.ToUpper(username),
		Role:         role,
		IsActive:     true,
		IsApproved:   true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}
