package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hall-adp-api/api/swagger"
	"github.com/noah-isme/hall-adp-api/internal/handler"
	"github.com/noah-isme/hall-adp-api/internal/middleware"
	"github.com/noah-isme/hall-adp-api/internal/repository"
	"github.com/noah-isme/hall-adp-api/internal/service"
	"github.com/noah-isme/hall-adp-api/pkg/cache"
	"github.com/noah-isme/hall-adp-api/pkg/config"
	"github.com/noah-isme/hall-adp-api/pkg/database"
	"github.com/noah-isme/hall-adp-api/pkg/jobs"
	"github.com/noah-isme/hall-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hall-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hall-adp-api/pkg/middleware/requestid"
)

// @title Hall ADP API
// @version 1.0.0
// @description Residence hall room allocation
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, availability cache disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	layout := service.NewHallLayout(cfg.Hall)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	allotmentRepo := repository.NewAllotmentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db, cfg.Hall.TxRetries)
	allocationRepo.OnRetry(func(attempt int, err error) {
		metricsSvc.RecordAllocationRetry()
		logr.Debug("allocation transaction retry", zap.Int("attempt", attempt), zap.Error(err))
	})
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo.Enabled())
	occupancySvc := service.NewOccupancyService(studentRepo, layout, logr)
	roomSvc := service.NewRoomService(roomRepo, occupancySvc, layout, cacheSvc, cfg.Cache.TTL, logr)
	if cacheSvc.Enabled() {
		warmQueue := jobs.NewQueue("availability-warm", roomSvc.HandleWarmJob, jobs.QueueConfig{
			Workers:    cfg.Cache.WarmWorkers,
			MaxRetries: 1,
			Logger:     logr,
		})
		warmQueue.Start(ctx)
		defer warmQueue.Stop()
		roomSvc.SetWarmer(warmQueue)
	}

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	allotmentSvc := service.NewAllotmentService(studentRepo, allotmentRepo, allocationRepo, layout, logr,
		service.WithAllotmentAudit(userRepo),
		service.WithAllotmentMetrics(metricsSvc),
		service.WithAllotmentRooms(roomSvc),
	)
	reportSvc := service.NewReportService(occupancySvc, layout, cfg.Reports.Enabled, logr)

	readiness := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, authSvc, routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		rooms:      handler.NewRoomHandler(roomSvc),
		allotments: handler.NewAllotmentHandler(allotmentSvc),
		reports:    handler.NewReportHandler(reportSvc),
		metrics:    handler.NewMetricsHandler(metricsSvc, readiness),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
