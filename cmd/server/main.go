package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/soutenance/gateway/internal/audit"
	"github.com/soutenance/gateway/internal/auth"
	"github.com/soutenance/gateway/internal/config"
	"github.com/soutenance/gateway/internal/database"
	"github.com/soutenance/gateway/internal/middleware"
	"github.com/soutenance/gateway/internal/proxy"
	"github.com/soutenance/gateway/internal/ratelimit"
	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/session"
	"github.com/soutenance/gateway/internal/token"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting Soutenance Auth Gateway", zap.String("env", cfg.Env))

	// Connect to PostgreSQL (audit trail)
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis (revocations, rate limiting)
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize services
	tokens := token.NewService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	blacklist := token.NewBlacklist(redisClient.Client)
	limiter := ratelimit.NewLimiter(
		redisClient.Client,
		cfg.RateLimit.Window,
		cfg.RateLimit.MaxAttempts,
		cfg.RateLimit.LockoutDuration,
	)
	auditRepo := audit.NewRepository(db.DB)

	store := session.NewStore(int(cfg.Session.TTL.Seconds()), cfg.Session.Domain, cfg.IsProduction())
	resolver := session.NewResolver(tokens, store, blacklist)

	backendClient := auth.NewBackendClient(cfg.Upstream.BackendURL, cfg.Upstream.Timeout)
	authService := auth.NewService(backendClient, tokens, limiter, auditRepo, blacklist, logger)

	// Upstream proxies
	backendProxy, err := proxy.New(cfg.Upstream.BackendURL, logger)
	if err != nil {
		logger.Fatal("Invalid backend URL", zap.Error(err))
	}
	appProxy, err := proxy.New(cfg.Upstream.AppURL, logger)
	if err != nil {
		logger.Fatal("Invalid app URL", zap.Error(err))
	}

	// Initialize handlers
	authHandler := auth.NewHandler(authService, store)
	auditHandler := audit.NewHandler(auditRepo)

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	allowedOrigins := middleware.ParseAllowedOrigins(cfg.CORS.AllowedOrigins)
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Operational routes
	router.GET("/health", authHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session lifecycle
	router.POST("/login", authHandler.Login)
	router.POST("/logout", authHandler.Logout)
	router.GET("/session", middleware.APIAuth(resolver), authHandler.Session)

	// Audit trail, managers only
	router.GET("/admin/login-attempts",
		middleware.APIAuth(resolver),
		middleware.RequireRole(role.Manager),
		auditHandler.ListLoginAttempts,
	)

	// Backend API passthrough. A resolved session credential travels as a
	// bearer header; revoked or expired tokens are dropped here instead of
	// being replayed. The backend enforces its own per-endpoint
	// authorization, so login and register pass through bare.
	router.Any("/api/*path", backendProxy.WithBearer(resolver, store))

	// Role-scoped page trees served by the web app.
	pageRoutes := map[string]role.Role{
		"/student":   role.Student,
		"/professor": role.Professor,
		"/dashboard": role.Manager,
	}
	for prefix, required := range pageRoutes {
		group := router.Group(prefix, middleware.Guard(resolver, required))
		group.Any("", appProxy.Handler())
		group.Any("/*path", appProxy.Handler())
	}

	// Everything else (login page, registration, assets) is public.
	router.NoRoute(appProxy.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
