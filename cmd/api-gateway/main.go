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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classboard/enrollment-api/api/swagger"
	"github.com/classboard/enrollment-api/internal/handler"
	"github.com/classboard/enrollment-api/internal/jobs"
	"github.com/classboard/enrollment-api/internal/middleware"
	"github.com/classboard/enrollment-api/internal/notify"
	"github.com/classboard/enrollment-api/internal/repository"
	"github.com/classboard/enrollment-api/internal/service"
	"github.com/classboard/enrollment-api/pkg/cache"
	"github.com/classboard/enrollment-api/pkg/config"
	"github.com/classboard/enrollment-api/pkg/database"
	"github.com/classboard/enrollment-api/pkg/logger"
	corsmiddleware "github.com/classboard/enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classboard/enrollment-api/pkg/middleware/requestid"
)

// @title Classboard Enrollment API
// @version 1.0.0
// @description Class enrollment, waitlist and section planning service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Planner.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Planner.CacheTTL, logr, true)
	}

	waitlistRepo := repository.NewWaitlistRepository(db)
	notificationRepo := repository.NewWaitlistNotificationRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	requestRepo := repository.NewEnrollmentRequestRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	planningRepo := repository.NewPlanningRepository(db)

	var channel notify.Channel
	if cfg.Notifications.SendgridAPIKey != "" {
		channel = notify.NewSendgridChannel(cfg.Notifications.SendgridAPIKey, cfg.Notifications.FromName, cfg.Notifications.FromEmail)
	} else {
		channel = notify.NewConsoleChannel(logr)
	}
	dispatcher := notify.NewDispatcher(channel, cfg.Notifications.Workers, logr)

	validate := validator.New()

	waitlistSvc := service.NewWaitlistService(
		waitlistRepo, notificationRepo, classRepo, enrollmentRepo,
		dispatcher, metricsSvc, logr,
		cfg.Waitlist.ResponseWindow, cfg.Waitlist.AvgTurnoverDaysPerSeat,
	)
	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo, requestRepo, classRepo, invitationRepo,
		waitlistSvc, validate, logr,
	)
	plannerSvc := service.NewPlannerService(planningRepo, cacheSvc, metricsSvc, cfg.Planner, logr)

	runner := jobs.NewWaitlistJobRunner(waitlistSvc, waitlistSvc, classRepo, logr)
	scheduler := jobs.NewScheduler(runner, cfg.Sweeps, logr)
	promotions := jobs.NewPromotionQueue(waitlistSvc, logr)

	waitlistHandler := handler.NewWaitlistHandler(waitlistSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, promotions)
	planningHandler := handler.NewPlanningHandler(plannerSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/classes/:classId/waitlist", waitlistHandler.Join)
		api.GET("/classes/:classId/waitlist", waitlistHandler.List)
		api.POST("/classes/:classId/waitlist/process", waitlistHandler.Process)
		api.GET("/classes/:classId/waitlist/:studentId", waitlistHandler.StudentInfo)
		api.GET("/classes/:classId/waitlist/:studentId/position", waitlistHandler.Position)
		api.DELETE("/classes/:classId/waitlist/:studentId", waitlistHandler.Withdraw)
		api.POST("/classes/:classId/waitlist/:studentId/response", waitlistHandler.Respond)

		api.POST("/enrollments", enrollmentHandler.Request)
		api.POST("/enrollments/bulk", enrollmentHandler.Bulk)
		api.POST("/enrollments/drop", enrollmentHandler.Drop)
		api.POST("/enrollments/requests/:requestId/approve", enrollmentHandler.Approve)
		api.POST("/enrollments/requests/:requestId/deny", enrollmentHandler.Deny)

		if cfg.Planner.Enabled {
			api.GET("/planning/departments/:departmentId/analysis", planningHandler.Analysis)
			api.GET("/planning/departments/:departmentId/plans", planningHandler.Plans)
			api.GET("/planning/departments/:departmentId/plans/export", planningHandler.Export)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	promotions.Start(ctx)
	defer promotions.Stop()

	if err := scheduler.Start(); err != nil {
		logr.Sugar().Fatalw("failed to start sweep scheduler", "error", err)
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
