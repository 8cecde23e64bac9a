package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classvr/fleet-api/api/swagger"
	"github.com/classvr/fleet-api/internal/handler"
	"github.com/classvr/fleet-api/internal/middleware"
	"github.com/classvr/fleet-api/internal/repository"
	"github.com/classvr/fleet-api/internal/service"
	"github.com/classvr/fleet-api/pkg/cache"
	"github.com/classvr/fleet-api/pkg/config"
	"github.com/classvr/fleet-api/pkg/database"
	"github.com/classvr/fleet-api/pkg/logger"
	corsmiddleware "github.com/classvr/fleet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classvr/fleet-api/pkg/middleware/requestid"
	"github.com/classvr/fleet-api/pkg/notifier"
)

// @title ClassVR Fleet API
// @version 0.1.0
// @description Booking, eligibility and assignment service for VR headset fleets
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Redis is optional: booking and eligibility keep working on the
	// in-process caches when it is unreachable.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without snapshot cache", "error", err)
		redisClient = nil
	}

	retryer := repository.NewRetryer(cfg.Database.RetryMax, cfg.Database.RetryBase)

	deviceRepo := repository.NewDeviceRepository(db, retryer)
	teacherRepo := repository.NewTeacherRepository(db, retryer)
	programRepo := repository.NewProgramRepository(db, retryer)
	linkRepo := repository.NewContentLinkRepository(db, retryer)
	contentUnitRepo := repository.NewContentUnitRepository(db, retryer)
	bookingRepo := repository.NewBookingRepository(db, retryer)
	assignmentRepo := repository.NewAssignmentRepository(db, retryer)

	metricsSvc := service.NewMetricsService()

	var notify notifier.Notifier = notifier.Nop{}
	if redisClient != nil && cfg.Notifier.Enabled {
		notify = notifier.NewRedis(redisClient, cfg.Notifier.Channel, cfg.Notifier.Buffer, logr)
	}
	defer notify.Close()

	eligibilityCache := service.NewEligibilityCache(cfg.Eligibility.CacheTTL)
	var eligibilitySvc *service.EligibilityService
	if redisClient != nil && cfg.Eligibility.SnapshotCache {
		snapshots := repository.NewCacheRepository(redisClient, logr)
		eligibilitySvc = service.NewEligibilityService(programRepo, deviceRepo, linkRepo, eligibilityCache, snapshots, cfg.Eligibility.SnapshotTTL, logr, metricsSvc)
	} else {
		eligibilitySvc = service.NewEligibilityService(programRepo, deviceRepo, linkRepo, eligibilityCache, nil, cfg.Eligibility.SnapshotTTL, logr, metricsSvc)
	}

	deviceSvc := service.NewDeviceService(deviceRepo, linkRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, logr)
	programSvc := service.NewProgramService(programRepo, logr)
	contentSvc := service.NewContentService(contentUnitRepo, logr)
	bookingSvc := service.NewBookingService(bookingRepo, teacherRepo, cfg.Scheduling, nil, logr, notify, metricsSvc)
	cartStore := service.NewCartStore(cfg.Eligibility.CacheTTL)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, eligibilitySvc, cartStore, nil, logr, notify, metricsSvc)

	deviceHandler := handler.NewDeviceHandler(deviceSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	programHandler := handler.NewProgramHandler(programSvc, eligibilitySvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.GET("/devices", deviceHandler.List)
	api.GET("/devices/:id", deviceHandler.Get)
	api.GET("/devices/:id/content", deviceHandler.ListContent)

	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)

	api.GET("/programs", programHandler.List)
	api.GET("/programs/:id", programHandler.Get)
	api.GET("/programs/:id/required-content", programHandler.RequiredContent)
	api.GET("/programs/:id/eligible-devices", programHandler.EligibleDevices)
	api.GET("/programs/:id/assignments", assignmentHandler.ListByProgram)

	api.GET("/content-units", contentHandler.List)
	api.GET("/content-units/:id", contentHandler.Get)

	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/conflict-check", bookingHandler.Preview)
	api.GET("/bookings/:id", bookingHandler.Get)

	api.GET("/assignments/:id", assignmentHandler.Get)

	// All mutating routes require an authenticated caller. Tokens are
	// issued by the surrounding platform; this service only validates.
	secured := api.Group("", middleware.JWT(cfg.JWT.Secret))

	secured.POST("/devices", deviceHandler.Create)
	secured.PATCH("/devices/:id/health", deviceHandler.UpdateHealth)
	secured.POST("/devices/:id/content", deviceHandler.InstallContent)
	secured.DELETE("/devices/:id/content/:contentId", deviceHandler.UninstallContent)

	secured.POST("/bookings", bookingHandler.Propose)
	secured.POST("/bookings/:id/approve", bookingHandler.Approve)
	secured.POST("/bookings/:id/reject", bookingHandler.Reject)
	secured.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	secured.POST("/bookings/:id/complete", bookingHandler.Complete)

	secured.POST("/selection-carts", assignmentHandler.OpenCart)
	secured.GET("/selection-carts/:id", assignmentHandler.GetCart)
	secured.POST("/selection-carts/:id/rebind", assignmentHandler.Rebind)
	secured.POST("/selection-carts/:id/toggle", assignmentHandler.Toggle)
	secured.POST("/selection-carts/:id/select-all", assignmentHandler.SelectAll)
	secured.POST("/selection-carts/:id/clear", assignmentHandler.Clear)
	secured.POST("/selection-carts/:id/bulk-import", assignmentHandler.BulkImport)
	secured.POST("/selection-carts/:id/commit", assignmentHandler.Commit)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
