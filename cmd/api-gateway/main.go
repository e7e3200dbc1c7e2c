package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/el-siradj/SCHOOL/api/swagger"
	"github.com/el-siradj/SCHOOL/internal/handler"
	internalmiddleware "github.com/el-siradj/SCHOOL/internal/middleware"
	"github.com/el-siradj/SCHOOL/internal/repository"
	"github.com/el-siradj/SCHOOL/internal/service"
	"github.com/el-siradj/SCHOOL/pkg/cache"
	"github.com/el-siradj/SCHOOL/pkg/config"
	"github.com/el-siradj/SCHOOL/pkg/database"
	"github.com/el-siradj/SCHOOL/pkg/export"
	"github.com/el-siradj/SCHOOL/pkg/logger"
	corsmiddleware "github.com/el-siradj/SCHOOL/pkg/middleware/cors"
	reqidmiddleware "github.com/el-siradj/SCHOOL/pkg/middleware/requestid"
)

// @title School Timetable API
// @version 1.0.0
// @description Class timetable planning: placement validation, suggestions, greedy auto-fill and printable grids.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Timetable.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			// The planner works without Redis; the breaker keeps lookups cheap until it is back.
			logr.Warn("redis unavailable, catalog cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	catalogRepo := repository.NewTimetableCatalogRepository(db)
	quotaRepo := repository.NewTimetableQuotaRepository(db)
	capabilityRepo := repository.NewTimetableCapabilityRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, repository.CacheBreakerSettings{
		FailureThreshold: cfg.Timetable.CacheBreakerFailures,
		Timeout:          cfg.Timetable.CacheBreakerTimeout,
	}, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CatalogCacheTTL, cfg.Timetable.CacheEnabled && redisClient != nil)
	catalogSvc := service.NewTimetableCatalogService(catalogRepo, cacheSvc, cfg.Timetable.CatalogCacheTTL, logr)
	placementValidator := service.NewPlacementValidator(catalogSvc, capabilityRepo, slotRepo)

	plannerSvc := service.NewTimetablePlannerService(catalogSvc, quotaRepo, capabilityRepo, slotRepo, db, metricsSvc, validate, logr, service.TimetablePlannerConfig{
		MaxSameSubjectPerDay: cfg.Timetable.MaxSameSubjectPerDay,
	})
	slotSvc := service.NewTimetableSlotService(catalogSvc, placementValidator, slotRepo, db, metricsSvc, validate, logr)
	setupSvc := service.NewTimetableSetupService(catalogSvc, quotaRepo, capabilityRepo, slotRepo, db, validate, logr, service.TimetableSetupConfig{
		MaxWeeklyPeriods: cfg.Timetable.MaxWeeklyPeriods(),
	})
	exportSvc := service.NewExportService(catalogSvc, slotRepo, service.ExportConfig{TitlePrefix: cfg.Timetable.ExportTitlePrefix}, logr, export.NewCSVExporter(), export.NewPDFExporter())
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	registerRoutes(r, routeDeps{
		prefix:       cfg.APIPrefix,
		tokens:       tokenSvc,
		plannerRoles: cfg.Timetable.AllowedPlannerRoles,
		setupRoles:   cfg.Timetable.AllowedSetupRoles,
		metrics:      handler.NewMetricsHandler(metricsSvc, checks, logr),
		planner:      handler.NewTimetablePlannerHandler(plannerSvc),
		slots:        handler.NewTimetableSlotHandler(slotSvc),
		views:        handler.NewTimetableExportHandler(exportSvc),
		setup:        handler.NewTimetableSetupHandler(setupSvc, catalogSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
