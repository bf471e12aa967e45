package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"caseportal/internal/config"
	"caseportal/internal/middleware"
	"caseportal/internal/models"
	"caseportal/internal/service"
)

// AuthAPI is the part of service.AuthService the HTTP layer calls.
type AuthAPI interface {
	middleware.Authenticator
	LoginUser(ctx context.Context, input service.LoginInput) (service.LoginResult, error)
	InvalidateSession(token string)
	ListSessions(ctx context.Context, userID string) ([]models.Session, error)
	ChangePassword(ctx context.Context, userID string, current string, next string, meta service.RequestMeta) error
	ResetPassword(ctx context.Context, email string, next string, meta service.RequestMeta) error
	CheckPassword(password string) error
	PrecheckUser(ctx context.Context, input service.CreateUserInput) error
	CreateUser(ctx context.Context, input service.CreateUserInput, by *models.User, meta service.RequestMeta) (models.User, error)
	UpdateUserProfile(ctx context.Context, targetID string, input service.UpdateProfileInput, by models.User, meta service.RequestMeta) (models.User, error)
	UpdateUserRole(ctx context.Context, targetID string, role models.UserRole, actor service.Actor) (models.User, error)
	ActivateUser(ctx context.Context, targetID string, actor service.Actor) (models.User, error)
	DeactivateUser(ctx context.Context, targetID string, actor service.Actor) (models.User, error)
	ApproveUser(ctx context.Context, targetID string, actor service.Actor) (models.User, error)
	DeleteUser(ctx context.Context, targetID string, actor service.Actor) error
	LogAuditEvent(ctx context.Context, event service.AuditEvent)
}

// OtpAPI is the part of service.OtpService the HTTP layer calls.
type OtpAPI interface {
	RequestOTP(ctx context.Context, email string, purpose service.OtpPurpose) error
	VerifyOTP(ctx context.Context, email string, code string) (service.VerifyResult, error)
	ConsumeVerificationToken(ctx context.Context, email string, token string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Dependency is a named backend reported by the health endpoint.
type Dependency struct {
	Name   string
	Pinger Pinger
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  AuthAPI
	otpService   OtpAPI
	dependencies []Dependency
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, auth AuthAPI, otp OtpAPI, deps ...Dependency) HandlerSet {
	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  auth,
		otpService:   otp,
		dependencies: deps,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireSession := middleware.Auth(h.authService, h.cfg.Security.CookieName, h.log)
	throttle := middleware.RateLimit(h.cfg.HTTP.AuthRateLimit, h.cfg.HTTP.AuthRateBurst)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", throttle, h.Login)
		auth.POST("/logout", h.Logout)

		protected := v1.Group("/auth", requireSession)
		protected.GET("/me", h.Me)
		protected.PATCH("/me", h.UpdateMe)
		protected.GET("/sessions", h.ListSessions)
		protected.POST("/password", h.ChangePassword)

		otp := v1.Group("/otp", throttle)
		otp.POST("/request", h.RequestOTP)
		otp.POST("/verify", h.VerifyOTP)

		v1.POST("/register/complete", throttle, h.CompleteRegistration)
		v1.POST("/password-reset/complete", throttle, h.CompletePasswordReset)
	}

	admin := v1.Group("/admin/users",
		requireSession,
		middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleSuperAdmin),
	)
	admin.POST("", h.AdminCreateUser)
	admin.PATCH("/:id", h.AdminUpdateUser)
	admin.PUT("/:id/role", h.AdminUpdateRole)
	admin.POST("/:id/activate", h.AdminActivateUser)
	admin.POST("/:id/deactivate", h.AdminDeactivateUser)
	admin.POST("/:id/approve", h.AdminApproveUser)
	admin.DELETE("/:id", h.AdminDeleteUser)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
