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

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/alkitu/gatekeeper/internal/config"
	"github.com/alkitu/gatekeeper/internal/database"
	"github.com/alkitu/gatekeeper/internal/flags"
	"github.com/alkitu/gatekeeper/internal/gate"
	"github.com/alkitu/gatekeeper/internal/locale"
	"github.com/alkitu/gatekeeper/internal/middleware"
	"github.com/alkitu/gatekeeper/internal/proxy"
	"github.com/alkitu/gatekeeper/internal/ratelimit"
	"github.com/alkitu/gatekeeper/internal/token"
	"github.com/alkitu/gatekeeper/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
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

	logger.Info("Starting gatekeeper",
		zap.String("env", cfg.Env),
		zap.String("upstream", cfg.UpstreamURL),
	)
	if cfg.SkipAuth {
		logger.Warn("SKIP_AUTH is enabled, authentication is bypassed")
	}

	// Access rules
	rules, err := access.LoadRules(cfg.AccessConfigPath)
	if err != nil {
		logger.Fatal("Failed to load access rules", zap.Error(err))
	}

	// Redis is optional
	redisClient, err := database.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	if redisClient != nil {
		logger.Info("Connected to Redis")
	}

	// Token verification and refresh
	var verifierOpts []token.VerifierOption
	var coordinatorOpts []token.CoordinatorOption
	flagOpts := []flags.Option{flags.WithTimeout(cfg.FeatureFlag.Timeout)}
	if rdb := redisClient.Universal(); rdb != nil {
		verifierOpts = append(verifierOpts, token.WithRevocationList(token.NewBlacklist(rdb)))
		coordinatorOpts = append(coordinatorOpts,
			token.WithResultCache(rdb, cfg.Refresh.CacheTTL),
			token.WithFailureLimiter(ratelimit.NewLimiter(rdb, cfg.Refresh.FailureWindow, cfg.Refresh.MaxFailures, cfg.Refresh.Lockout)),
		)
		flagOpts = append(flagOpts, flags.WithCache(rdb, cfg.FeatureFlag.CacheTTL))
	}

	verifier := token.NewVerifier(cfg.JWT.SecretKey, logger, verifierOpts...)
	refresher := token.NewCoordinator(
		token.NewHTTPRefresher(cfg.Refresh.Origin, cfg.Refresh.Timeout, logger),
		logger,
		coordinatorOpts...,
	)
	flagClient := flags.NewClient(cfg.FeatureFlag.APIURL, logger, flagOpts...)

	// Gate chain: locale, then auth, then feature flags
	locales := locale.NewResolver(cfg.Locale.Supported, cfg.Locale.Default, cfg.IsProduction())
	chain := gate.NewChain(logger,
		gate.NewLocaleStage(locales),
		gate.NewAuthStage(gate.AuthOptions{
			Verifier:   verifier,
			Refresher:  refresher,
			Rules:      rules,
			Locales:    locales,
			Logger:     logger,
			SkipAuth:   cfg.SkipAuth,
			Production: cfg.IsProduction(),
		}),
		gate.NewFlagStage(rules.FlagTable(), flagClient, locales),
	).WithBypass(locales.IsExcluded)

	cookiePolicy := gate.CookiePolicy{
		Secure:     cfg.IsProduction(),
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	}

	upstream, err := proxy.New(cfg.UpstreamURL, logger)
	if err != nil {
		logger.Fatal("Invalid upstream", zap.Error(err))
	}

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Gatekeeper endpoints
	router.GET("/health", health(redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Everything else goes through the gate to the application
	router.NoRoute(middleware.Gatekeeper(chain, cookiePolicy), upstream.Handle)

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

func health(redisClient *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := redisClient.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"redis":  err.Error(),
			})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "healthy"})
	}
}
