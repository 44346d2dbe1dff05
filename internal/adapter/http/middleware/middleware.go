package middleware

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header names for provider webhook authentication
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookTimestamp = "X-Webhook-Timestamp"

	// Context keys
	CtxUserEmail = "user_email"
	CtxStaff     = "staff"
)

// WebhookAuth creates a middleware that verifies provider webhook
// deliveries: timestamp drift check, then HMAC-SHA256 over
// METHOD|PATH|TIMESTAMP|BODY with the shared secret.
func WebhookAuth(
	secret string,
	maxDrift time.Duration,
	sigSvc ports.SignatureService,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(HeaderWebhookSignature)
		timestampStr := c.GetHeader(HeaderWebhookTimestamp)

		if signature == "" || timestampStr == "" {
			response.Error(c, apperror.ErrInvalidWebhookSignature())
			c.Abort()
			return
		}

		// Step 1: Timestamp check (bounds replay of captured deliveries)
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrWebhookTimestampExpired())
			c.Abort()
			return
		}
		now := time.Now().Unix()
		if math.Abs(float64(now-timestamp)) > maxDrift.Seconds() {
			response.Error(c, apperror.ErrWebhookTimestampExpired())
			c.Abort()
			return
		}

		// Step 2: Signature verification
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			string(bodyBytes),
		)

		if !sigSvc.Verify(secret, canonical, signature) {
			log.Warn().Str("path", c.Request.URL.Path).Msg("webhook signature mismatch")
			response.Error(c, apperror.ErrInvalidWebhookSignature())
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth creates a middleware that validates JWT tokens for the
// notification API and websocket routes.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		tokenStr := authHeader[7:]
		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxStaff, claims.Staff)
		c.Next()
	}
}

// StaffOnly rejects callers whose token lacks the staff claim. Must run
// after JWTAuth.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxStaff) {
			response.Error(c, apperror.ErrStaffOnly())
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
