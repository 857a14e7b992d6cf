package app

import (
	"context"
	"fmt"

	"earnaura/internal/config"
	"earnaura/internal/database"
	"earnaura/internal/domain/adminrequest"
	"earnaura/internal/domain/auth"
	"earnaura/internal/domain/notification"
	"earnaura/internal/domain/realtime"
	"earnaura/internal/middleware"
	"earnaura/internal/pkg/jwt"
	"earnaura/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the wired server: REST API, websocket endpoint and background jobs.
type App struct {
	Router *gin.Engine
	Hub    *realtime.Hub

	cfg     *config.RuntimeConfig
	log     *zap.Logger
	broker  realtime.Broker
	cleanup *notification.CleanupService
	redis   *redis.Client
}

// New migrates the schema and builds every service on top of db.
func New(ctx context.Context, cfg *config.RuntimeConfig, db *gorm.DB, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	if err := database.Migrate(db,
		&auth.User{},
		&notification.Notification{},
		&adminrequest.AdminRequest{},
		&adminrequest.Document{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	jwtService := jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	authService := auth.NewService(auth.NewUserRepository(db), jwtService, log)
	if cfg.SuperAdminEmail != "" {
		if err := authService.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
			return nil, fmt.Errorf("ensure super admin: %w", err)
		}
	}

	a := &App{cfg: cfg, log: log, Hub: realtime.NewHub(log)}

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.broker = realtime.NewRedisBroker(a.redis, a.Hub, log)
		log.Info("realtime fan-out via redis", zap.String("addr", cfg.RedisAddr))
	} else {
		a.broker = realtime.NewMemoryBroker(a.Hub)
	}
	publisher := realtime.NewPublisher(a.broker, log)

	notifRepo := notification.NewNotificationRepository(db)
	notifService := notification.NewService(notifRepo, publisher, log)
	a.cleanup = notification.NewCleanupService(notifRepo, log)

	requestService := adminrequest.NewService(
		adminrequest.NewRepository(db),
		adminrequest.NewDocumentStore(cfg.UploadDir, cfg.MaxDocumentBytes),
		authService,
		notifService,
		publisher,
		adminrequest.Config{
			InstitutionalDomains: cfg.InstitutionalDomains,
			AutoApproveDomains:   cfg.AutoApproveDomains,
		},
		log,
	)

	authHandler := auth.NewHandler(authService)
	notifHandler := notification.NewHandler(notifService, log)
	requestHandler := adminrequest.NewHandler(requestService)
	wsHandler := realtime.NewWSHandler(a.Hub, jwtService, cfg.CORSAllowedOrigins, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, log)

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	wsHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		authHandler.RegisterPublicRoutes(api, limiter.Middleware())

		protected := api.Group("")
		protected.Use(middleware.JWTAuth(jwtService))
		{
			authHandler.RegisterProtectedRoutes(protected)
			notification.RegisterRoutes(protected, notifHandler)
			requestHandler.RegisterUserRoutes(protected, limiter.Middleware())
			requestHandler.RegisterReviewerRoutes(protected)
		}
	}

	a.Router = r
	return a, nil
}

// Start runs the broker subscription and the cleanup scheduler until ctx is
// cancelled.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.broker.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("realtime broker stopped", zap.Error(err))
		}
	}()

	a.cleanup.ScheduleCleanup(ctx, notification.CleanupConfig{
		Retention:       a.cfg.NotificationRetention,
		CleanupInterval: a.cfg.CleanupInterval,
		Enabled:         true,
	})
}

// Close releases the redis connection, if any.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
