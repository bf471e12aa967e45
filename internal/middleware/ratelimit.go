package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/gin-gonic/gin"
)

// RateLimit throttles each client IP to perSecond requests with the given
// burst. It only blunts credential stuffing; OTP cooldowns are enforced by
// the service per email regardless.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	// Only the socket address; forwarded headers are client controlled.
	lmt.SetIPLookups([]string{"RemoteAddr"})
	if burst > 0 {
		lmt.SetBurst(burst)
	}
	retryAfter := strconv.Itoa(int(max(1, 1/perSecond)))

	return func(c *gin.Context) {
		if httpErr := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpErr != nil {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
