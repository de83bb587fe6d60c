package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-timetable-optimizer/api/swagger"
	"github.com/noah-isme/sma-timetable-optimizer/internal/handler"
	"github.com/noah-isme/sma-timetable-optimizer/internal/middleware"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/internal/repository"
	"github.com/noah-isme/sma-timetable-optimizer/internal/service"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/cache"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/config"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/database"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/jobs"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-optimizer/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-optimizer/pkg/middleware/requestid"
)

// @title SMA Timetable Optimizer API
// @version 0.1.0
// @description Schedule optimization service for the school platform
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis is an accelerator here, not a dependency. Run degraded.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT)

	optimizerSvc := service.NewOptimizerService(
		scheduleRepo,
		roomRepo,
		db,
		cacheRepo,
		metricsSvc,
		nil,
		logr,
		cfg.Optimizer,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reportSvc := service.NewReportService(ctx, scheduleRepo, teacherRepo, roomRepo, nil, logr, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	defer reportSvc.Stop()

	optimizerHandler := handler.NewOptimizerHandler(optimizerSvc)
	scheduleHandler := handler.NewScheduleHandler(optimizerSvc, reportSvc)
	systemHandler := handler.NewSystemHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	canOptimize := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		api.POST("/optimizer/run", canOptimize, optimizerHandler.Run)
		api.POST("/optimizer/train", canOptimize, optimizerHandler.Train)
		api.GET("/optimizer/targets", optimizerHandler.Targets)

		api.GET("/schedules", scheduleHandler.List)
		api.GET("/schedules/:id", scheduleHandler.Get)
		api.GET("/schedules/:id/analysis", scheduleHandler.Analysis)
		api.POST("/schedules/:id/reports", canOptimize, scheduleHandler.EnqueueReport)

		api.GET("/reports/:jobId", scheduleHandler.ReportStatus)
		api.GET("/reports/:jobId/download", scheduleHandler.ReportDownload)

		api.GET("/system/metrics", systemHandler.Metrics)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
