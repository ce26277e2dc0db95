// main.go - Freezy API server
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freezybe/internal/config"
	"freezybe/internal/database"
	"freezybe/internal/handlers"
	"freezybe/internal/middleware"
	"freezybe/internal/services"
	"freezybe/internal/storage"
	"freezybe/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	firebaseService, err := services.NewFirebaseService(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize firebase", zap.Error(err))
	}

	// Payment proofs are optional
	var (
		store  services.ObjectStore
		signer services.URLSigner
	)
	if cfg.R2Config.Enabled() {
		r2Client, err := storage.NewR2Client(cfg.R2Config)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		store = r2Client
		signer = r2Client
	} else {
		logger.Warn("R2 not configured, payment proof uploads disabled")
	}

	// Realtime hub
	hub := websocket.NewManager(logger)
	go hub.Run(ctx)

	// Services
	userService := services.NewUserService(db, logger)
	authService := services.NewAuthService(firebaseService, userService, logger)
	resourceService := services.NewResourceService(db, logger)
	activityService := services.NewActivityService(db, logger)
	notificationService := services.NewNotificationService(db, hub, logger)
	hub.SetReadMarker(notificationService)
	adminService := services.NewAdminService(db, notificationService, logger)
	if signer != nil {
		adminService.SetURLSigner(signer)
	}
	uploadService := services.NewUploadService(db, store, notificationService, logger)

	var importer *services.Importer
	firestoreClient, err := firebaseService.Firestore(ctx)
	if err != nil {
		logger.Warn("firestore unavailable, legacy import disabled", zap.Error(err))
	} else {
		source := services.NewFirestoreSource(firestoreClient)
		defer source.Close()
		importer = services.NewImporter(db, source, logger)
		if cfg.FirestoreSyncInterval > 0 {
			go importer.RunPeriodic(ctx, cfg.FirestoreSyncInterval)
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(userService, cfg.SupportWhatsApp, logger)
	resourceHandler := handlers.NewResourceHandler(resourceService, userService, activityService, logger)
	activityHandler := handlers.NewActivityHandler(activityService, notificationService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	uploadHandler := handlers.NewUploadHandler(uploadService, userService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, userService, importer, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins, logger)

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.RunCleanup(ctx)

	router := setupRouter(cfg, logger, rateLimiter)

	router.GET("/health", func(c *gin.Context) {
		dbStats := database.Stats()
		healthy := database.Health() == nil
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":   map[bool]string{true: "healthy", false: "degraded"}[healthy],
			"database": healthy,
			"app":      "freezy",
			"features": gin.H{
				"payment_proofs": store != nil,
				"firestore_sync": importer != nil && cfg.FirestoreSyncInterval > 0,
				"websockets":     true,
			},
			"websocket_stats": hub.Stats(),
			"database_stats": gin.H{
				"open_connections": dbStats.OpenConnections,
				"in_use":           dbStats.InUse,
				"idle":             dbStats.Idle,
			},
		})
	})

	setupRoutes(router, firebaseService, userService, logger, routeHandlers{
		auth:         authHandler,
		user:         userHandler,
		resource:     resourceHandler,
		activity:     activityHandler,
		notification: notificationHandler,
		upload:       uploadHandler,
		admin:        adminHandler,
		websocket:    wsHandler,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("freezy server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.Bool("r2", store != nil),
			zap.Duration("firestore_sync", cfg.FirestoreSyncInterval))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsRelease() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func setupRouter(cfg *config.Config, logger *zap.Logger, rateLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws"})))
	router.Use(middleware.RateLimit(rateLimiter))

	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization", "X-Request-ID",
			"Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Request-ID",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.SecurityHeaders())

	return router
}

type routeHandlers struct {
	auth         *handlers.AuthHandler
	user         *handlers.UserHandler
	resource     *handlers.ResourceHandler
	activity     *handlers.ActivityHandler
	notification *handlers.NotificationHandler
	upload       *handlers.UploadHandler
	admin        *handlers.AdminHandler
	websocket    *handlers.WebSocketHandler
}

func setupRoutes(
	router *gin.Engine,
	verifier middleware.TokenVerifier,
	adminChecker middleware.AdminChecker,
	logger *zap.Logger,
	h routeHandlers,
) {
	api := router.Group("/api/v1")
	requireAuth := middleware.FirebaseAuth(verifier)

	// ===============================
	// WEBSOCKET
	// ===============================
	api.GET("/ws/notifications", requireAuth, h.websocket.HandleWebSocket)

	// ===============================
	// PUBLIC
	// ===============================
	public := api.Group("")
	{
		public.POST("/auth/register", h.auth.Register)
		public.POST("/auth/reset-password", h.auth.ResetPassword)
		public.GET("/resources/featured", h.resource.Featured)
		public.GET("/resources/categories", h.resource.Categories)
		public.GET("/plans", h.user.Plans)
	}

	// ===============================
	// AUTHENTICATED
	// ===============================
	protected := api.Group("")
	protected.Use(requireAuth)
	{
		protected.POST("/auth/sync", h.auth.SyncUser)
		protected.POST("/auth/logout", h.auth.Logout)
		protected.GET("/auth/user", h.auth.GetCurrentUser)

		me := protected.Group("/me")
		{
			me.PUT("/profile", h.user.UpdateProfile)
			me.PUT("/plan", h.user.UpdatePlan)
			me.PUT("/preferences/notifications", h.user.UpdateNotificationPreferences)
			me.POST("/preferences/browser-notifications", h.user.EnableBrowserNotifications)
			me.POST("/fix", h.user.FixDocument)
			me.POST("/payment-proof", h.upload.SubmitPaymentProof)

			me.GET("/saved", h.activity.GetSaved)
			me.POST("/saved", h.activity.Save)
			me.DELETE("/saved/:id", h.activity.RemoveSaved)

			me.GET("/history", h.activity.GetHistory)
			me.DELETE("/history", h.activity.ClearHistory)

			me.GET("/applications", h.activity.GetApplications)
			me.POST("/applications", h.activity.AddApplication)
			me.PUT("/applications/:id", h.activity.UpdateApplication)

			me.GET("/stats", h.activity.Stats)
		}

		resources := protected.Group("/resources")
		{
			resources.GET("", h.resource.ForPlan)
			resources.GET("/browse", h.resource.Browse)
			resources.GET("/search", h.resource.Search)
			resources.GET("/:id", h.resource.Get)
			resources.POST("/:id/view", h.resource.TrackView)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.notification.List)
			notifications.GET("/unread-count", h.notification.UnreadCount)
			notifications.PUT("/read-all", h.notification.MarkAllRead)
			notifications.PUT("/:id/read", h.notification.MarkRead)
			notifications.DELETE("/:id", h.notification.Delete)
		}
	}

	// ===============================
	// ADMIN
	// ===============================
	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.AdminOnly(adminChecker, logger))
	{
		admin.GET("/users", h.admin.ListUsers)
		admin.POST("/users/bulk-approve", h.admin.BulkApprove)
		admin.GET("/users/:uid", h.admin.GetUser)
		admin.PUT("/users/:uid", h.admin.UpdateUser)
		admin.DELETE("/users/:uid", h.admin.DeleteUser)
		admin.POST("/users/:uid/approve", h.admin.ApproveUser)
		admin.POST("/users/:uid/reject", h.admin.RejectUser)
		admin.PUT("/users/:uid/plan", h.admin.UpdateUserPlan)

		admin.GET("/resources", h.admin.ListResources)
		admin.POST("/resources", h.admin.CreateResource)
		admin.PUT("/resources/batch", h.admin.BatchUpdateResources)
		admin.PATCH("/resources/:id", h.admin.UpdateResource)
		admin.DELETE("/resources/:id", h.admin.DeleteResource)
		admin.POST("/resources/:id/moderate", h.admin.ModerateResource)

		admin.GET("/analytics", h.admin.Analytics)
		admin.GET("/actions", h.admin.ActionLogs)
		admin.GET("/payment-proofs", h.admin.PaymentProofs)
		admin.GET("/ws/stats", h.websocket.Stats)

		admin.POST("/import/firestore", h.admin.ImportFirestore)
		admin.POST("/initialize", h.admin.InitializeSampleData)
		admin.POST("/migrations/access-levels", h.admin.MigrateAccessLevels)
		admin.POST("/migrations/approvals", h.admin.MigrateApprovals)
		admin.POST("/migrations/approvals/:uid", h.admin.MigrateApprovals)
	}
}
