package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lostfound-api/api/swagger"
	"github.com/noah-isme/lostfound-api/internal/handler"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/repository"
	"github.com/noah-isme/lostfound-api/internal/service"
	"github.com/noah-isme/lostfound-api/pkg/cache"
	"github.com/noah-isme/lostfound-api/pkg/config"
	"github.com/noah-isme/lostfound-api/pkg/database"
	"github.com/noah-isme/lostfound-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lostfound-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lostfound-api/pkg/middleware/requestid"
	"github.com/noah-isme/lostfound-api/pkg/storage"
)

// @title Campus Lost and Found API
// @version 1.0.0
// @description Lost-and-found item reporting for campus students
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis is an accelerator here, not a dependency. Run without it.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploadStorage, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	exportStorage, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	// Exports are throwaway files; sweep out anything past its retention
	// window before taking traffic.
	if deleted, err := exportStorage.CleanupOlderThan(cfg.Exports.RetentionTTL); err != nil {
		logr.Sugar().Warnw("failed to clean up stale exports", "error", err)
	} else if len(deleted) > 0 {
		logr.Info("removed stale exports", zap.Int("count", len(deleted)))
	}

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lostfound-api",
	})

	itemSvc := service.NewItemService(itemRepo, cacheRepo, userRepo, exportStorage, signer, logr, service.ItemServiceConfig{
		ListCacheTTL:    cfg.Cache.ItemListTTL,
		StatsCacheTTL:   cfg.Cache.StatsTTL,
		ExportsBasePath: cfg.APIPrefix + "/exports",
	}).WithMetrics(metricsSvc)

	photoSvc := service.NewPhotoService(uploadStorage, cfg.Uploads.BaseURL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	itemHandler := handler.NewItemHandler(itemSvc, photoSvc, cfg.Uploads.MaxFileSizeBytes)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static(cfg.Uploads.BaseURL, cfg.Uploads.Dir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/logout-all", middleware.JWT(authSvc), authHandler.LogoutAll)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	items := api.Group("/items")
	items.GET("", middleware.JWT(authSvc), itemHandler.List)
	items.GET("/stats", itemHandler.Stats)
	items.GET("/:id", middleware.JWT(authSvc), itemHandler.Get)
	items.POST("", middleware.JWT(authSvc), itemHandler.Create)
	items.POST("/:id/claim", middleware.JWT(authSvc), itemHandler.Claim)
	items.PATCH("/:id/status", middleware.JWT(authSvc), itemHandler.UpdateStatus)
	items.POST("/export", middleware.JWT(authSvc), middleware.Audit(userRepo, models.AuditActionItemExport, "items"), itemHandler.Export)

	api.GET("/exports/:token", itemHandler.DownloadExport)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
