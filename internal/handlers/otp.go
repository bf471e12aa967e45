package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"caseportal/internal/models"
	"caseportal/internal/service"
)

type otpRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	Purpose string `json:"purpose" binding:"required,oneof=registration password_reset"`
}

// RequestOTP mails a code for either purpose without checking whether the
// address belongs to an account, so the response never reveals that.
func (h HandlerSet) RequestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.otpService.RequestOTP(c.Request.Context(), req.Email, service.OtpPurpose(req.Purpose)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
	Code  string `json:"code" binding:"required"`
}

func (h HandlerSet) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.otpService.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) && result.RemainingAttempts != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_or_expired_token",
				"remainingAttempts": *result.RemainingAttempts,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verificationToken": result.VerificationToken,
		"expiresAt":         result.ExpiresAt,
	})
}

type completeRegistrationRequest struct {
	Email             string `json:"email" binding:"required,email,max=254"`
	VerificationToken string `json:"verificationToken" binding:"required"`
	Username          string `json:"username" binding:"required"`
	Password          string `json:"password" binding:"required"`
	FullName          string `json:"fullName" binding:"required,max=200"`
}

// CompleteRegistration creates an applicant for a proven email. Inputs are
// checked before the token is spent so a typo does not cost a new code.
func (h HandlerSet) CompleteRegistration(c *gin.Context) {
	var req completeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	input := service.CreateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Role:       models.UserRoleApplicant,
		IsApproved: true,
	}
	if err := h.authService.PrecheckUser(ctx, input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.otpService.ConsumeVerificationToken(ctx, req.Email, req.VerificationToken); err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.authService.CreateUser(ctx, input, nil, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

type completePasswordResetRequest struct {
	Email             string `json:"email" binding:"required,email,max=254"`
	VerificationToken string `json:"verificationToken" binding:"required"`
	NewPassword       string `json:"newPassword" binding:"required"`
}

// CompletePasswordReset answers 204 for any redeemed token, including one
// issued for an address with no account.
func (h HandlerSet) CompletePasswordReset(c *gin.Context) {
	var req completePasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.CheckPassword(req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.otpService.ConsumeVerificationToken(ctx, req.Email, req.VerificationToken); err != nil {
		h.respondError(c, err)
		return
	}

	err := h.authService.ResetPassword(ctx, req.Email, req.NewPassword, requestMeta(c))
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
