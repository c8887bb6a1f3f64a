package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studyhub-api/api/swagger"
	"github.com/noah-isme/studyhub-api/internal/handler"
	internalmiddleware "github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/repository"
	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/cache"
	"github.com/noah-isme/studyhub-api/pkg/config"
	"github.com/noah-isme/studyhub-api/pkg/database"
	"github.com/noah-isme/studyhub-api/pkg/export"
	"github.com/noah-isme/studyhub-api/pkg/jobs"
	"github.com/noah-isme/studyhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

// @title StudyHub API
// @version 1.0.0
// @description Learning portal: nonfiction mock tests, support tickets and announcements
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, announcement cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	tests := storage.NewNamespace("tests", cfg.Store.TestsDir,
		storage.WithCreateOnList(),
		storage.WithLocking(cfg.Store.Locking),
		storage.WithObserver(metricsSvc),
		storage.WithLogger(logr),
	)
	tickets := storage.NewNamespace("tickets", cfg.Store.TicketsDir,
		storage.WithLocking(cfg.Store.Locking),
		storage.WithObserver(metricsSvc),
		storage.WithLogger(logr),
	)

	userRepo := repository.NewUserRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	authSvc := service.NewAuthService(userRepo, validate, metricsSvc, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err := authSvc.BootstrapAdmin(ctx, service.AdminBootstrap{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		logr.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	results := tests.Sub("results")
	purgeQueue := jobs.NewQueue("result-purge", service.ResultPurgeHandler(results, logr), jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	purgeQueue.Start(ctx)

	mockTestSvc := service.NewMockTestService(tests, results, validate, metricsSvc, logr, service.WithResultPurgeQueue(purgeQueue))
	ticketSvc := service.NewTicketService(tickets, validate, metricsSvc, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Announcements.CacheTTL, logr, cfg.Announcements.CacheEnabled && redisClient != nil)
	announcementSvc := service.NewAnnouncementService(announcementRepo, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(mockTestSvc, logr, nil, nil, export.NewPDFExporter(cfg.Exports.FontPath))

	handlers := &handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Nonfiction:    handler.NewNonfictionHandler(mockTestSvc, exportSvc),
		Support:       handler.NewSupportHandler(ticketSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc,
			handler.ReadinessCheck{Name: "database", Required: true, Check: db.PingContext},
			handler.ReadinessCheck{Name: "redis", Check: cacheRepo.Ping},
		),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	handlers.SetupRoutes(r, cfg.APIPrefix, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	purgeQueue.Stop()
}
