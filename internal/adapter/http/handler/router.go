package handler

import (
	"time"

	"club-operations-core/internal/adapter/http/middleware"
	redisStore "club-operations-core/internal/adapter/storage/redis"
	"club-operations-core/internal/adapter/ws"
	"club-operations-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Processor      ports.WebhookProcessor
	NotifRepo      ports.NotificationRepository
	PushSubRepo    ports.PushSubscriptionRepository
	EncSvc         ports.EncryptionService
	SigSvc         ports.SignatureService
	TokenSvc       ports.TokenService
	StatsSvc       ports.StatsService
	Hub            *ws.Hub
	WebhookSecret  string
	TimestampDrift time.Duration
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Provider webhook (HMAC-signed) ---
	webhookAuth := middleware.WebhookAuth(deps.WebhookSecret, deps.TimestampDrift, deps.SigSvc, deps.Logger)
	webhookHandler := NewWebhookHandler(deps.Processor, deps.Logger)
	r.POST("/api/v1/webhooks/payments", webhookAuth, webhookHandler.Receive)

	// --- Notification API (JWT-authenticated) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	notifHandler := NewNotificationHandler(deps.NotifRepo)

	notifications := r.Group("/api/notifications", jwtAuth)
	{
		notifications.GET("", rl("notifications"), notifHandler.List)
		notifications.GET("/count", rl("notifications"), notifHandler.CountUnread)
		notifications.POST("/:id/read", rl("notifications_write"), notifHandler.MarkRead)
	}

	// --- Push subscriptions (JWT-authenticated) ---
	pushHandler := NewPushHandler(deps.PushSubRepo, deps.EncSvc)
	push := r.Group("/api/push/subscriptions", jwtAuth)
	{
		push.POST("", rl("push"), pushHandler.Subscribe)
		push.DELETE("", rl("push"), pushHandler.Unsubscribe)
	}

	// --- Live notifications (token validated in-handler: the browser
	// WebSocket API cannot set headers) ---
	wsHandler := NewWSHandler(deps.Hub, deps.TokenSvc, deps.Logger)
	r.GET("/ws", wsHandler.Connect)

	// --- Staff operations ---
	opsHandler := NewOpsHandler(deps.StatsSvc)
	ops := r.Group("/api/v1/ops", jwtAuth, middleware.StaffOnly())
	{
		ops.GET("/stats", rl("ops"), opsHandler.EventStats)
	}

	return r
}
