package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/gizmodojp/line-contact-api/db"
	"github.com/gizmodojp/line-contact-api/handlers"
	"github.com/gizmodojp/line-contact-api/internal/store/postgres"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/gizmodojp/line-contact-api/middleware"
	"github.com/gizmodojp/line-contact-api/router"
	"github.com/gizmodojp/line-contact-api/services"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const appName = "Gizmodo Japan LINE Bot Contact API"

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	if cfg.IsProduction() {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	log.Infow("Connected to database", "conn", logger.MaskConnectionString(cfg.Database.ConnString()))

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Services
	inquiryStore := postgres.NewInquiryStore(pool)
	turnstileService := services.NewTurnstileService(&cfg.Turnstile)
	lineAuthService := services.NewLineAuthService(&cfg.Line)
	mailer := services.NewMailer(&cfg.Email)
	emailService := services.NewEmailService(&cfg.Email, mailer)

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()

	// Optional Redis-backed rate limiting; the form stays available when
	// no Redis instance is configured.
	var rateLimiter gin.HandlerFunc
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		rateLimitService := services.NewRateLimitService(redisClient)
		rateLimiter = middleware.InquiryRateLimiter(rateLimitService, middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		})
	}

	// Handlers and router
	inquiryHandler := handlers.NewInquiryHandler(
		inquiryStore,
		turnstileService,
		lineAuthService,
		emailService,
		workerPool,
	)
	healthHandler := handlers.NewHealthHandler(appName, cfg.Server.Version)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		InquiryHandler: inquiryHandler,
		HealthHandler:  healthHandler,
		RateLimiter:    rateLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Serve until interrupted, then drain in-flight requests and pending
	// email jobs before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown error", "error", err)
	}

	poolCtx, poolCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds)*time.Second)
	defer poolCancel()
	if err := workerPool.Shutdown(poolCtx); err != nil {
		log.Errorw("Worker pool shutdown error", "error", err)
	}

	log.Info("Shutdown complete")
}
