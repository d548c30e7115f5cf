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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/skolaris/skolaris-api/api/swagger"
	"github.com/skolaris/skolaris-api/internal/handler"
	"github.com/skolaris/skolaris-api/internal/middleware"
	"github.com/skolaris/skolaris-api/internal/models"
	"github.com/skolaris/skolaris-api/internal/query"
	"github.com/skolaris/skolaris-api/internal/repository"
	"github.com/skolaris/skolaris-api/internal/service"
	"github.com/skolaris/skolaris-api/pkg/cache"
	"github.com/skolaris/skolaris-api/pkg/config"
	"github.com/skolaris/skolaris-api/pkg/database"
	"github.com/skolaris/skolaris-api/pkg/logger"
	corsmiddleware "github.com/skolaris/skolaris-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skolaris/skolaris-api/pkg/middleware/requestid"
)

// @title Skolaris Data Gateway
// @version 1.0.0
// @description Generic table data access with academic-year write gating
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, gate cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()

	registry := query.DefaultRegistry()
	dataRepo := repository.NewDataRepository(db, metricsSvc, cfg.Query.ExecTimeout)
	yearRepo := repository.NewYearRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	gateSvc := service.NewGateService(yearRepo, cacheRepo, metricsSvc, logr, cfg.Gate)
	dataSvc := service.NewDataService(registry, dataRepo, gateSvc, logr, cfg.Query.MaxLimit)
	yearSvc := service.NewYearService(yearRepo, gateSvc, auditRepo, nil, logr)
	authSvc := service.NewAuthService(cfg.JWT)

	dataHandler := handler.NewDataHandler(dataSvc)
	yearHandler := handler.NewYearHandler(yearSvc)

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

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	tables := api.Group("/tables")
	{
		tables.GET("/:table", dataHandler.Get)
		writeAudit := middleware.Audit(auditRepo, models.AuditActionTableWrite)
		tables.POST("/:table", writeAudit, dataHandler.Post)
		tables.PATCH("/:table", writeAudit, dataHandler.Patch)
		tables.DELETE("/:table", writeAudit, dataHandler.Delete)
	}

	years := api.Group("/years")
	{
		years.GET("", yearHandler.List)
		years.GET("/:id", yearHandler.Get)
		years.GET("/:id/status", yearHandler.Status)

		admin := years.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
		admin.POST("", yearHandler.Create)
		admin.POST("/:id/activate", yearHandler.Activate)
		admin.POST("/:id/archive", yearHandler.Archive)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
