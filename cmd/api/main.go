package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"club-operations-core/config"
	"club-operations-core/internal/adapter/crm"
	httpHandler "club-operations-core/internal/adapter/http/handler"
	"club-operations-core/internal/adapter/push"
	pgStorage "club-operations-core/internal/adapter/storage/postgres"
	redisStorage "club-operations-core/internal/adapter/storage/redis"
	"club-operations-core/internal/adapter/ws"
	"club-operations-core/internal/core/ports"
	"club-operations-core/internal/service"
	"club-operations-core/pkg/logger"
	"club-operations-core/pkg/timeutil"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Club Operations Core")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	eventRepo := pgStorage.NewEventRepo(pool)
	cursorRepo := pgStorage.NewCursorRepo(pool)
	accountRepo := pgStorage.NewAccountRepo(pool)
	notifRepo := pgStorage.NewNotificationRepo(pool)
	pushSubRepo := pgStorage.NewPushSubscriptionRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	claimCache := redisStorage.NewClaimCache(rdb)
	retryStore := redisStorage.NewRetryStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize delivery channels
	hub := ws.NewHub(log)
	pushSender := push.NewSender(cfg.Push, encSvc, log)
	if !pushSender.Configured() {
		log.Warn().Msg("VAPID keys not configured, push channel disabled")
	}
	crmClient := crm.NewClient(cfg.CRM, log)

	// Initialize business services
	quietLoc := time.UTC
	if cfg.Push.QuietHoursTZ != "" {
		loc, err := time.LoadLocation(cfg.Push.QuietHoursTZ)
		if err != nil {
			log.Warn().Err(err).Str("tz", cfg.Push.QuietHoursTZ).Msg("invalid quiet hours timezone, using UTC")
		} else {
			quietLoc = loc
		}
	}
	dispatcher := service.NewDispatcher(notifRepo, pushSubRepo, hub, pushSender, service.PushOptions{
		QuietHours: timeutil.NewWindow(cfg.Push.QuietHoursStart, cfg.Push.QuietHoursEnd),
		Location:   quietLoc,
		Icon:       cfg.Push.Icon,
		Badge:      cfg.Push.Badge,
	}, log)
	retryTracker := service.NewRetryTracker(retryStore, log)
	processor := service.NewProcessor(
		claimCache,
		eventRepo,
		cursorRepo,
		accountRepo,
		transactor,
		dispatcher,
		retryTracker,
		crmClient,
		auditSvc,
		cfg.Staff.NotifyEmail,
		log,
	)
	statsSvc := service.NewStatsService(eventRepo)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Processor:      processor,
		NotifRepo:      notifRepo,
		PushSubRepo:    pushSubRepo,
		EncSvc:         encSvc,
		SigSvc:         sigSvc,
		TokenSvc:       tokenSvc,
		StatsSvc:       statsSvc,
		Hub:            hub,
		WebhookSecret:  cfg.Webhook.Secret,
		TimestampDrift: cfg.Webhook.TimestampDrift,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
