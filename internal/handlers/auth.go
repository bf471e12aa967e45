package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"caseportal/internal/middleware"
	"caseportal/internal/models"
	"caseportal/internal/service"
)

type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	IsApproved   bool      `json:"isApproved"`
	IsFirstLogin bool      `json:"isFirstLogin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		IsApproved:   u.IsApproved,
		IsFirstLogin: u.IsFirstLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	DeviceName string `json:"deviceName" binding:"max=128"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	meta := requestMeta(c)
	meta.DeviceName = req.DeviceName
	result, err := h.authService.LoginUser(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		Meta:       meta,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      newUserResponse(result.User),
	})
}

// Logout always succeeds. The session is removed in the background.
func (h HandlerSet) Logout(c *gin.Context) {
	token := middleware.TokenFromRequest(c, h.cfg.Security.CookieName)
	if token != "" {
		principal, err := h.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.log.Warn().Err(err).Msg("logout session lookup failed")
		}
		h.authService.InvalidateSession(token)

		if principal != nil {
			meta := requestMeta(c)
			actor := principal.User.ID
			h.authService.LogAuditEvent(c.Request.Context(), service.AuditEvent{
				ActorID:   &actor,
				Action:    service.ActionLogout,
				TableName: "sessions",
				RecordID:  principal.SessionID,
				IPAddress: meta.IPAddress,
				UserAgent: meta.UserAgent,
			})
		}
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserResponse(user),
	})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName" binding:"omitempty,max=200"`
}

func (r updateProfileRequest) input() service.UpdateProfileInput {
	return service.UpdateProfileInput{
		Username: r.Username,
		Email:    r.Email,
		FullName: r.FullName,
	}
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.authService.UpdateUserProfile(c.Request.Context(), user.ID, req.input(), user, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(updated)})
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessions, err := h.authService.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	current := middleware.CurrentSessionID(c)
	items := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionResponse{
			ID:         s.ID,
			DeviceName: s.DeviceName,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == current,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, requestMeta(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
