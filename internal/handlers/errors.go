package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"caseportal/internal/service"
)

// respondError maps service errors to status codes. Anything unrecognised is
// a fault: it is logged and the client gets a generic body.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var rateLimit *service.RateLimitError
	var validation *service.ValidationError

	switch {
	case errors.As(err, &rateLimit):
		retry := rateLimit.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "retryAfter": retry})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": validation.Field, "reason": validation.Reason})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrSelfAction):
		c.JSON(http.StatusForbidden, gin.H{"error": "self_action"})
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_or_expired_token"})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user_exists"})
	case errors.Is(err, service.ErrLastSuperAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": "last_superadmin"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
	case errors.Is(err, service.ErrDeliveryFailed):
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("delivery failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delivery_failed"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
}
