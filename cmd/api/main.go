package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/studyhub/studyhub-api/api/swagger"
	"github.com/studyhub/studyhub-api/internal/handler"
	"github.com/studyhub/studyhub-api/internal/middleware"
	"github.com/studyhub/studyhub-api/internal/models"
	"github.com/studyhub/studyhub-api/internal/repository"
	"github.com/studyhub/studyhub-api/internal/service"
	"github.com/studyhub/studyhub-api/pkg/cache"
	"github.com/studyhub/studyhub-api/pkg/config"
	"github.com/studyhub/studyhub-api/pkg/database"
	"github.com/studyhub/studyhub-api/pkg/logger"
	corsmiddleware "github.com/studyhub/studyhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyhub/studyhub-api/pkg/middleware/requestid"
	"github.com/studyhub/studyhub-api/pkg/storage"
)

// @title StudyHub API
// @version 1.0.0
// @description Student resource sharing platform with admin moderation
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

	// The listing cache is optional: when Redis is unreachable the API runs
	// uncached rather than refusing to start.
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ListingTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studyhub-api",
	})
	collegeSvc := service.NewCollegeService(collegeRepo, logr)
	resourceSvc := service.NewResourceService(resourceRepo, collegeRepo, fileStorage, signer, cacheSvc, metricsSvc, logr, service.ResourceServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	})
	reviewSvc := service.NewReviewService(resourceRepo, cacheSvc, metricsSvc, logr)
	statsSvc := service.NewStatsService(resourceRepo, userRepo, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	collegeHandler := handler.NewCollegeHandler(collegeSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)

	api.GET("/colleges", collegeHandler.List)
	api.GET("/colleges/:id", collegeHandler.Get)

	resources := api.Group("/resources")
	resources.GET("", resourceHandler.List)
	resources.GET("/mine", middleware.JWT(authSvc), resourceHandler.ListMine)
	resources.GET("/:id", middleware.OptionalJWT(authSvc), resourceHandler.Get)
	resources.GET("/:id/download", resourceHandler.Download)
	resources.POST("", middleware.JWT(authSvc), resourceHandler.Upload)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/resources/pending", reviewHandler.Pending)
	admin.POST("/resources/:id/approve", reviewHandler.Approve)
	admin.POST("/resources/:id/reject", reviewHandler.Reject)
	admin.GET("/stats", statsHandler.Overview)
	admin.GET("/stats/system", statsHandler.SystemMetrics)
	admin.GET("/stats/export", statsHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
