// Package main runs the events HTTP server with the live feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/accesscache"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/ceremonies"
	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/interactions"
	"github.com/aura-events/backend/internal/invitees"
	"github.com/aura-events/backend/internal/invites"
	"github.com/aura-events/backend/internal/media"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/realtime"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/logger"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/redis"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
	"github.com/aura-events/backend/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, log); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		MediaBucket:          cfg.AWS.MediaBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, log)
	if err != nil {
		log.Fatal("s3", zap.Error(err))
	}

	// Access engine, optionally behind the Redis decision cache
	resolver := access.NewResolver(access.NewRepository(pool), log)
	resolver.SetBatchLimit(cfg.Access.BatchLimit)
	checker := accesscache.New(resolver, rdb, cfg.Access.CacheTTL, log)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb, log)
	pubsub := realtime.NewRedisPubSub(rdb, log)
	hub := realtime.NewHub(pubsub, log)

	authHandler := auth.NewHandler(auth.NewRepository(pool), jwtService, checker, log)
	eventHandler := events.NewHandler(events.NewRepository(pool), checker, checker, log)
	ceremonyRepo := ceremonies.NewRepository(pool)
	ceremonyHandler := ceremonies.NewHandler(ceremonyRepo, checker, log)
	inviteeHandler := invitees.NewHandler(invitees.NewRepository(pool), checker, checker, log)
	inviteHandler := invites.NewHandler(invites.NewRepository(pool), jobQueue, cfg.Webhook.Secret, log)
	interactionRepo := interactions.NewRepository(pool)
	interactionService := interactions.NewService(interactionRepo, hub, log)
	interactionHandler := interactions.NewHandler(interactionRepo, interactionService, checker, log)
	mediaHandler := media.NewHandler(media.NewRepository(pool), s3Client, checker, log)
	feedHandler := realtime.NewHandler(hub, checker, jwtService, interactionService, cfg.Server.AllowedOrigins(), log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Tracing(otel.GetTracerProvider()))
	router.Use(middleware.Logger(log))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	required := middleware.JWT(jwtService)
	optional := middleware.OptionalJWT(jwtService)
	view := middleware.RequireEventView(checker)
	interact := middleware.RequireEventInteract(checker)
	organizer := middleware.RequireOrganizer(checker)
	ceremonyOrganizer := ceremonies.RequireCeremonyOrganizer(ceremonyRepo, checker)

	// Events
	router.GET("/events", optional, eventHandler.Timeline)
	router.POST("/events", required, eventHandler.Create)
	router.GET("/events/mine", required, eventHandler.Mine)
	router.GET("/events/:id", optional, view, eventHandler.Get)
	router.GET("/events/:id/access", optional, eventHandler.Access)
	router.PATCH("/events/:id", required, organizer, eventHandler.Update)
	router.DELETE("/events/:id", required, organizer, eventHandler.Delete)

	// Ceremonies
	router.POST("/events/:id/ceremonies", required, organizer, ceremonyHandler.Create)
	router.GET("/events/:id/ceremonies", optional, view, ceremonyHandler.ListForEvent)
	router.GET("/ceremonies/:id", optional, middleware.RequireCeremonyAccess(checker), ceremonyHandler.Get)
	router.PATCH("/ceremonies/:id", required, ceremonyOrganizer, ceremonyHandler.Update)

	// Guest list
	router.POST("/events/:id/invitees", required, organizer, inviteeHandler.Create)
	router.GET("/events/:id/invitees", required, organizer, inviteeHandler.List)
	router.DELETE("/invitees/:id", required, inviteeHandler.Delete)
	router.POST("/events/:id/rsvp", required, view, inviteeHandler.RSVP)

	// Invites
	router.POST("/ceremonies/:id/invites", required, ceremonyOrganizer, inviteHandler.Create)
	router.GET("/ceremonies/:id/invites", required, ceremonyOrganizer, inviteHandler.List)
	router.POST("/webhooks/invite-status", inviteHandler.StatusWebhook)

	// Interactions
	router.GET("/events/:id/interactions", optional, view, interactionHandler.List)
	router.POST("/events/:id/interactions", optional, interact, interactionHandler.Create)

	// Media
	router.POST("/events/:id/media", optional, interact, mediaHandler.Upload)
	router.GET("/events/:id/media", optional, view, mediaHandler.List)
	router.GET("/media/:id/url", optional, mediaHandler.URL)
	router.DELETE("/media/:id", required, mediaHandler.Delete)

	// Live feed (token in query; no Authorization header required)
	router.GET("/ws", feedHandler.ServeWs)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
