package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/wayfarer-app/trip-planner-api/internal/handler"
	internalmiddleware "github.com/wayfarer-app/trip-planner-api/internal/middleware"
	"github.com/wayfarer-app/trip-planner-api/internal/repository"
	"github.com/wayfarer-app/trip-planner-api/internal/service"
	"github.com/wayfarer-app/trip-planner-api/pkg/cache"
	"github.com/wayfarer-app/trip-planner-api/pkg/config"
	"github.com/wayfarer-app/trip-planner-api/pkg/database"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
	"github.com/wayfarer-app/trip-planner-api/pkg/jobs"
	"github.com/wayfarer-app/trip-planner-api/pkg/logger"
	corsmiddleware "github.com/wayfarer-app/trip-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/wayfarer-app/trip-planner-api/pkg/middleware/requestid"
)

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

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.PlanTTL, logr, true)
	}

	dayStart, err := geo.ParseClock(cfg.Planner.DayStart)
	if err != nil {
		logr.Sugar().Fatalw("invalid PLANNER_DAY_START", "error", err)
	}
	dayEnd, err := geo.ParseClock(cfg.Planner.DayEnd)
	if err != nil {
		logr.Sugar().Fatalw("invalid PLANNER_DAY_END", "error", err)
	}

	itineraryRepo := repository.NewItineraryRepository(db)
	itinerarySvc := service.NewItineraryService(
		itineraryRepo,
		db,
		cacheSvc,
		metrics,
		validator.New(),
		logr,
		service.ItineraryServiceConfig{
			ProposalTTL:     cfg.Planner.ProposalTTL,
			DayStartMinutes: dayStart,
			DayEndMinutes:   dayEnd,
			FixPasses:       cfg.Planner.FixPasses,
			MaxItemsPerDay:  cfg.Planner.MaxItemsPerDay,
			MaxTripDays:     cfg.Planner.MaxTripDuration,
		},
	)

	if cacheSvc.Enabled() {
		warmQueue := jobs.NewQueue("itinerary-cache-warm", func(ctx context.Context, task jobs.Task) error {
			_, err := itinerarySvc.Get(ctx, task.ID)
			return err
		}, jobs.Options{Workers: 2, Logger: logr})
		warmQueue.Start(context.Background())
		defer warmQueue.Stop()
		itinerarySvc.WithCacheWarming(warmQueue)
	}

	itineraryHandler := handler.NewItineraryHandler(itinerarySvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/itineraries/generate", itineraryHandler.Generate)
		api.POST("/itineraries/validate", itineraryHandler.Validate)
		api.POST("/itineraries/fix", itineraryHandler.Fix)
		api.POST("/itineraries/save", itineraryHandler.Save)
		api.GET("/itineraries", itineraryHandler.List)
		api.GET("/itineraries/:id", itineraryHandler.Get)
		api.DELETE("/itineraries/:id", itineraryHandler.Delete)
		api.GET("/transport/feasibility", itineraryHandler.Feasibility)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
