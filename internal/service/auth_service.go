package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"caseportal/internal/config"
	"caseportal/internal/ids"
	"caseportal/internal/models"
	"caseportal/internal/repository"
	"caseportal/internal/security"
)

const (
	invalidateTimeout = 5 * time.Second
	bootstrapUsername = "admin"
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	hasher   *security.PasswordHasher
	audit    *AuditLogger
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	hasher *security.PasswordHasher,
	audit *AuditLogger,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		audit:    audit,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RequestMeta is the client context attached to sessions and audit entries.
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceName string
}

// Actor is the caller of a security posture change. Password is the
// caller's own current password and is verified on every call.
type Actor struct {
	ID        string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginInput struct {
	Identifier string
	Password   string
	Meta       RequestMeta
}

type LoginResult struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// LoginUser authenticates by username or email. Every failure is
// ErrInvalidCredentials. A successful login leaves exactly one session for
// the user.
func (s *AuthService) LoginUser(ctx context.Context, input LoginInput) (LoginResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.lookupIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(input.Password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok || !user.IsActive || !user.IsApproved {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, input.Password, now)
	}

	token, tokenHash, err := security.GenerateSessionToken()
	if err != nil {
		return LoginResult{}, err
	}

	session := models.Session{
		ID:         ids.New(),
		UserID:     user.ID,
		TokenHash:  tokenHash,
		IPAddress:  input.Meta.IPAddress,
		UserAgent:  input.Meta.UserAgent,
		DeviceName: input.Meta.DeviceName,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.cfg.Security.SessionTTL),
	}

	revoked, err := s.sessions.ReplaceForUser(ctx, session)
	if errors.Is(err, repository.ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Int64("revoked_sessions", revoked).
		Msg("user logged in")

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(user.ID),
		Action:    ActionLogin,
		TableName: "sessions",
		RecordID:  session.ID,
		NewValues: map[string]any{"revoked_sessions": revoked},
		IPAddress: input.Meta.IPAddress,
		UserAgent: input.Meta.UserAgent,
	})

	return LoginResult{
		User:      user.Sanitized(),
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) lookupIdentifier(ctx context.Context, identifier string) (models.User, error) {
	user, err := s.users.FindByUsername(ctx, identifier)
	if err == nil || !errors.Is(err, repository.ErrUserNotFound) || !strings.Contains(identifier, "@") {
		return user, err
	}
	return s.users.FindByEmail(ctx, strings.ToLower(identifier))
}

func (s *AuthService) rehash(ctx context.Context, userID string, password string, now time.Time) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash, false, now)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("password rehash failed")
	}
}

// Principal is an authenticated session owner.
type Principal struct {
	User      models.User
	SessionID string
}

// Authenticate resolves token to its live session and owner. It returns nil
// when the token does not name a live session of an active user; only store
// faults are errors.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if !security.WellFormedToken(token) {
		return nil, nil
	}

	session, user, err := s.sessions.FindValid(ctx, security.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	return &Principal{User: user.Sanitized(), SessionID: session.ID}, nil
}

// ValidateSession is Authenticate without the session id.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	principal, err := s.Authenticate(ctx, token)
	if principal == nil {
		return nil, err
	}
	return &principal.User, nil
}

// InvalidateSession deletes the session in the background and returns
// immediately. Unknown tokens are ignored.
func (s *AuthService) InvalidateSession(token string) {
	if !security.WellFormedToken(token) {
		return
	}
	tokenHash := security.HashToken(token)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()

		if _, err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
			s.log.Error().Err(err).Msg("session invalidation failed")
		}
	}()
}

// Wait blocks until background invalidations have finished.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

// CleanupExpiredSessions removes sessions whose expiry is strictly before now.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("expired sessions removed")
	}
	return n, nil
}

func (s *AuthService) TouchSession(ctx context.Context, token string, ip string, userAgent string) error {
	if !security.WellFormedToken(token) {
		return nil
	}
	return s.sessions.Touch(ctx, security.HashToken(token), ip, userAgent, s.now())
}

// ListSessions returns the user's live sessions without token material.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].TokenHash = nil
	}
	return sessions, nil
}

type CreateUserInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Role       models.UserRole
	IsApproved bool

	// MustChangePassword forces the first-login flag for system-created
	// accounts. Accounts created by another user always carry it.
	MustChangePassword bool
}

// CreateUser stores a new account. by is nil for system-initiated creation
// (registration, bootstrap). Only a superadmin may create admin or superadmin
// accounts.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput, by *models.User, meta RequestMeta) (models.User, error) {
	username, email, err := s.checkNewUser(input)
	if err != nil {
		return models.User{}, err
	}

	var actorID *string
	if by != nil {
		actorID = actorRef(by.ID)
		if isPrivileged(input.Role) && by.Role != models.UserRoleSuperAdmin {
			return models.User{}, ErrForbidden
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	user := models.User{
		ID:           ids.NewUserID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     true,
		IsApproved:   input.IsApproved,
		IsFirstLogin: by != nil || input.MustChangePassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorID,
		Action:    ActionCreate,
		TableName: "users",
		RecordID:  user.ID,
		NewValues: userSnapshot(user),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return user.Sanitized(), nil
}

// PrecheckUser runs CreateUser's input checks and reports ErrUserExists for a
// taken username or email, without writing anything. Registration calls it
// before spending a verification token.
func (s *AuthService) PrecheckUser(ctx context.Context, input CreateUserInput) error {
	username, email, err := s.checkNewUser(input)
	if err != nil {
		return err
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	if email != nil {
		if _, err := s.users.FindByEmail(ctx, *email); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}
	}
	return nil
}

func (s *AuthService) checkNewUser(input CreateUserInput) (string, *string, error) {
	username := strings.TrimSpace(input.Username)
	if err := validateUsername(username); err != nil {
		return "", nil, err
	}
	if !input.Role.Valid() {
		return "", nil, invalid("role", "unknown role")
	}
	if err := validatePassword(input.Password, s.cfg.Security.MinPasswordLength); err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(input.Email) == "" {
		return username, nil, nil
	}
	normalized, err := NormalizeEmail(input.Email)
	if err != nil {
		return "", nil, err
	}
	return username, &normalized, nil
}

type UpdateProfileInput struct {
	Username *string
	Email    *string
	FullName *string
}

// UpdateUserProfile changes non-security fields. Users may edit themselves;
// admins may edit anyone but a superadmin, which only a superadmin may edit.
func (s *AuthService) UpdateUserProfile(ctx context.Context, targetID string, input UpdateProfileInput, by models.User, meta RequestMeta) (models.User, error) {
	target, err := s.getUser(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	if by.ID != target.ID {
		if err := requireRole(by, models.UserRoleAdmin, models.UserRoleSuperAdmin); err != nil {
			return models.User{}, err
		}
		if target.Role == models.UserRoleSuperAdmin && by.Role != models.UserRoleSuperAdmin {
			return models.User{}, ErrForbidden
		}
	}

	updated := target
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if err := validateUsername(username); err != nil {
			return models.User{}, err
		}
		updated.Username = username
	}
	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			updated.Email = nil
		} else {
			normalized, err := NormalizeEmail(*input.Email)
			if err != nil {
				return models.User{}, err
			}
			updated.Email = &normalized
		}
	}
	if input.FullName != nil {
		updated.FullName = strings.TrimSpace(*input.FullName)
	}

	saved, err := s.users.UpdateProfile(ctx, updated, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return models.User{}, ErrUserExists
		case errors.Is(err, repository.ErrUserNotFound):
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(by.ID),
		Action:    ActionUpdateProfile,
		TableName: "users",
		RecordID:  saved.ID,
		OldValues: userSnapshot(target),
		NewValues: userSnapshot(saved),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return saved.Sanitized(), nil
}

// UpdateUserRole is restricted to superadmins.
func (s *AuthService) UpdateUserRole(ctx context.Context, targetID string, role models.UserRole, actor Actor) (models.User, error) {
	if !role.Valid() {
		return models.User{}, invalid("role", "unknown role")
	}
	if _, err := s.authorizeActor(ctx, actor, models.UserRoleSuperAdmin); err != nil {
		return models.User{}, err
	}

	before, err := s.getUser(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}

	updated, err := s.users.UpdateRole(ctx, targetID, role, s.now())
	if err != nil {
		return models.User{}, mapMutationError(err)
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(actor.ID),
		Action:    ActionRoleChange,
		TableName: "users",
		RecordID:  targetID,
		OldValues: map[string]any{"role": string(before.Role)},
		NewValues: map[string]any{"role": string(updated.Role)},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})

	return updated.Sanitized(), nil
}

func (s *AuthService) ActivateUser(ctx context.Context, targetID string, actor Actor) (models.User, error) {
	return s.setActive(ctx, targetID, true, actor)
}

// DeactivateUser also revokes every session of the target.
func (s *AuthService) DeactivateUser(ctx context.Context, targetID string, actor Actor) (models.User, error) {
	if targetID == actor.ID {
		return models.User{}, ErrSelfAction
	}
	return s.setActive(ctx, targetID, false, actor)
}

func (s *AuthService) setActive(ctx context.Context, targetID string, active bool, actor Actor) (models.User, error) {
	actingUser, err := s.authorizeActor(ctx, actor, models.UserRoleAdmin, models.UserRoleSuperAdmin)
	if err != nil {
		return models.User{}, err
	}
	if err := s.guardSuperAdminTarget(ctx, actingUser, targetID); err != nil {
		return models.User{}, err
	}

	updated, err := s.users.SetActive(ctx, targetID, active, s.now())
	if err != nil {
		return models.User{}, mapMutationError(err)
	}

	action := ActionActivate
	if !active {
		action = ActionDeactivate
		if _, err := s.sessions.DeleteByUser(ctx, targetID); err != nil {
			s.log.Error().Err(err).Str("user_id", targetID).Msg("revoke sessions after deactivation failed")
		}
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(actor.ID),
		Action:    action,
		TableName: "users",
		RecordID:  targetID,
		OldValues: map[string]any{"is_active": !active},
		NewValues: map[string]any{"is_active": active},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})

	return updated.Sanitized(), nil
}

// ApproveUser follows the same authority rules as activation: admins may
// not act on a superadmin account.
func (s *AuthService) ApproveUser(ctx context.Context, targetID string, actor Actor) (models.User, error) {
	actingUser, err := s.authorizeActor(ctx, actor, models.UserRoleAdmin, models.UserRoleSuperAdmin)
	if err != nil {
		return models.User{}, err
	}
	target, err := s.getUser(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	if err := superAdminTargetAllowed(actingUser, target); err != nil {
		return models.User{}, err
	}

	updated, err := s.users.SetApproved(ctx, targetID, true, s.now())
	if err != nil {
		return models.User{}, mapMutationError(err)
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(actor.ID),
		Action:    ActionApprove,
		TableName: "users",
		RecordID:  targetID,
		OldValues: map[string]any{"is_approved": target.IsApproved},
		NewValues: map[string]any{"is_approved": true},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})

	return updated.Sanitized(), nil
}

// DeleteUser is restricted to superadmins. Sessions go with the user.
func (s *AuthService) DeleteUser(ctx context.Context, targetID string, actor Actor) error {
	if targetID == actor.ID {
		return ErrSelfAction
	}
	if _, err := s.authorizeActor(ctx, actor, models.UserRoleSuperAdmin); err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, targetID)
	if err != nil {
		return mapMutationError(err)
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(actor.ID),
		Action:    ActionDelete,
		TableName: "users",
		RecordID:  targetID,
		OldValues: userSnapshot(deleted),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	return nil
}

// authorizeActor re-authenticates the actor, then checks the role.
func (s *AuthService) authorizeActor(ctx context.Context, actor Actor, roles ...models.UserRole) (models.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(actor.Password)
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrUnauthorized
	}

	ok, err := s.hasher.Verify(actor.Password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, ErrInvalidCredentials
	}

	if err := requireRole(user, roles...); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// guardSuperAdminTarget stops admins from changing superadmin accounts.
func (s *AuthService) guardSuperAdminTarget(ctx context.Context, actingUser models.User, targetID string) error {
	if actingUser.Role == models.UserRoleSuperAdmin {
		return nil
	}
	target, err := s.getUser(ctx, targetID)
	if err != nil {
		return err
	}
	return superAdminTargetAllowed(actingUser, target)
}

func superAdminTargetAllowed(actingUser models.User, target models.User) error {
	if target.Role == models.UserRoleSuperAdmin && actingUser.Role != models.UserRoleSuperAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *AuthService) VerifyUserPassword(ctx context.Context, userID string, password string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			return false, nil
		}
		return false, err
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("stored password hash unreadable")
		return false, nil
	}
	return ok, nil
}

// ChangePassword requires the current password and clears the first-login flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, current string, next string, meta RequestMeta) error {
	ok, err := s.VerifyUserPassword(ctx, userID, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next, s.cfg.Security.MinPasswordLength); err != nil {
		return err
	}
	if next == current {
		return invalid("password", "must differ from the current password")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, true, s.now()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		ActorID:   actorRef(userID),
		Action:    ActionPasswordChange,
		TableName: "users",
		RecordID:  userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// ResetPassword sets a new password for the account owning email and revokes
// its sessions. The caller must already have consumed a verification token
// for that email.
func (s *AuthService) ResetPassword(ctx context.Context, email string, next string, meta RequestMeta) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := validatePassword(next, s.cfg.Security.MinPasswordLength); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, true, s.now()); err != nil {
		return err
	}
	if _, err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("revoke sessions after reset failed")
	}

	s.audit.RecordQuietly(ctx, AuditEvent{
		Action:    ActionPasswordReset,
		TableName: "users",
		RecordID:  user.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// CheckPassword applies the password policy without touching any account.
func (s *AuthService) CheckPassword(password string) error {
	return validatePassword(password, s.cfg.Security.MinPasswordLength)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return user.Sanitized(), nil
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return models.User{}, mapMutationError(err)
	}
	return user.Sanitized(), nil
}

func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return models.User{}, mapMutationError(err)
	}
	return user.Sanitized(), nil
}

// LogAuditEvent records an event on behalf of callers outside the service.
// Failures are logged and swallowed.
func (s *AuthService) LogAuditEvent(ctx context.Context, event AuditEvent) {
	s.audit.RecordQuietly(ctx, event)
}

// EnsureBootstrapAdmin creates the initial superadmin when none exists and a
// bootstrap password is configured. It reports whether an account was created.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	exists, err := s.users.ExistsWithRole(ctx, models.UserRoleSuperAdmin)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	user, err := s.CreateUser(ctx, CreateUserInput{
		Username:           bootstrapUsername,
		Password:           password,
		FullName:           "Administrator",
		Role:               models.UserRoleSuperAdmin,
		IsApproved:         true,
		MustChangePassword: true,
	}, nil, RequestMeta{})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("bootstrap superadmin created")
	return true, nil
}

func (s *AuthService) getUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, mapMutationError(err)
	}
	return user, nil
}

func mapMutationError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrLastSuperAdmin):
		return ErrLastSuperAdmin
	case errors.Is(err, repository.ErrConflict):
		return ErrUserExists
	}
	return err
}

func requireRole(user models.User, roles ...models.UserRole) error {
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

func isPrivileged(role models.UserRole) bool {
	return role == models.UserRoleAdmin || role == models.UserRoleSuperAdmin
}
