package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gema-points-api/api/swagger"
	"github.com/noah-isme/gema-points-api/internal/authz"
	"github.com/noah-isme/gema-points-api/internal/handler"
	"github.com/noah-isme/gema-points-api/internal/middleware"
	"github.com/noah-isme/gema-points-api/internal/repository"
	"github.com/noah-isme/gema-points-api/internal/service"
	"github.com/noah-isme/gema-points-api/pkg/cache"
	"github.com/noah-isme/gema-points-api/pkg/config"
	"github.com/noah-isme/gema-points-api/pkg/database"
	"github.com/noah-isme/gema-points-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gema-points-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gema-points-api/pkg/middleware/requestid"
)

// @title GEMA Points API
// @version 0.1.0
// @description Points economy backend: awards, redemptions, ledger and activity reporting
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	if cfg.Activity.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Activity.CacheTTL, logr, cacheRepo != nil)

	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	policy := authz.NewPolicy(guardianRepo)

	authService := service.NewAuthService(userRepo, auditRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gema-points-api",
	})
	awardService := service.NewAwardService(db, studentRepo, categoryRepo, ledgerRepo, auditRepo, cacheService, metricsService, nil, logr)
	redemptionService := service.NewRedemptionService(db, storeRepo, ledgerRepo, auditRepo, cacheService, metricsService, nil, logr)
	activityService := service.NewActivityService(activityRepo, cacheService, cfg.Activity.FeedLimit, logr)
	studentService := service.NewStudentService(studentRepo, nil, logr)
	guardianService := service.NewGuardianService(guardianRepo, nil, logr)
	categoryService := service.NewCategoryService(categoryRepo, nil, logr)
	itemService := service.NewItemService(storeRepo, nil, logr)
	incidentService := service.NewIncidentService(incidentRepo, auditRepo, cacheService, nil, logr)
	auditService := service.NewAuditService(auditRepo, logr)
	statementService := service.NewStatementService(studentRepo, ledgerRepo, storeRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	pointsHandler := handler.NewPointsHandler(awardService)
	itemHandler := handler.NewItemHandler(itemService, redemptionService, policy)
	activityHandler := handler.NewActivityHandler(activityService)
	studentHandler := handler.NewStudentHandler(studentService)
	guardianHandler := handler.NewGuardianHandler(guardianService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	incidentHandler := handler.NewIncidentHandler(incidentService)
	auditHandler := handler.NewAuditHandler(auditService)
	statementHandler := handler.NewStatementHandler(statementService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("", middleware.JWT(authService))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	protected := api.Group("", middleware.JWT(authService))

	students := protected.Group("/students")
	students.GET("", middleware.RequireCapability(policy, authz.OpViewStudents, ""), studentHandler.List)
	students.GET("/:id", middleware.RequireCapability(policy, authz.OpViewStudents, ""), studentHandler.Get)
	students.POST("", middleware.RequireCapability(policy, authz.OpManageStudents, ""), middleware.Audit(auditRepo, "STUDENT_CREATE", "student"), studentHandler.Create)
	students.PUT("/:id", middleware.RequireCapability(policy, authz.OpManageStudents, ""), middleware.Audit(auditRepo, "STUDENT_UPDATE", "student"), studentHandler.Update)
	students.DELETE("/:id", middleware.RequireCapability(policy, authz.OpManageStudents, ""), middleware.Audit(auditRepo, "STUDENT_DEACTIVATE", "student"), studentHandler.Deactivate)
	students.GET("/:id/balance", middleware.RequireCapability(policy, authz.OpViewBalance, "id"), pointsHandler.Balance)
	students.GET("/:id/points", middleware.RequireCapability(policy, authz.OpViewHistory, "id"), pointsHandler.History)
	students.GET("/:id/calendar", middleware.RequireCapability(policy, authz.OpViewCalendar, "id"), activityHandler.Calendar)
	students.GET("/:id/statement", middleware.RequireCapability(policy, authz.OpExportStatement, "id"), statementHandler.Download)

	points := protected.Group("/points")
	points.POST("/awards", middleware.RequireCapability(policy, authz.OpAwardPoints, ""), pointsHandler.Award)

	categories := protected.Group("/categories")
	categories.GET("", middleware.RequireCapability(policy, authz.OpViewCategories, ""), categoryHandler.List)
	categories.GET("/:id", middleware.RequireCapability(policy, authz.OpViewCategories, ""), categoryHandler.Get)
	categories.POST("", middleware.RequireCapability(policy, authz.OpManageCategories, ""), middleware.Audit(auditRepo, "CATEGORY_CREATE", "category"), categoryHandler.Create)
	categories.PUT("/:id", middleware.RequireCapability(policy, authz.OpManageCategories, ""), middleware.Audit(auditRepo, "CATEGORY_UPDATE", "category"), categoryHandler.Update)

	store := protected.Group("/store")
	store.GET("/items", middleware.RequireCapability(policy, authz.OpViewItems, ""), itemHandler.List)
	store.GET("/items/:id", middleware.RequireCapability(policy, authz.OpViewItems, ""), itemHandler.Get)
	store.POST("/items", middleware.RequireCapability(policy, authz.OpManageItems, ""), middleware.Audit(auditRepo, "ITEM_CREATE", "store_item"), itemHandler.Create)
	store.PUT("/items/:id", middleware.RequireCapability(policy, authz.OpManageItems, ""), middleware.Audit(auditRepo, "ITEM_UPDATE", "store_item"), itemHandler.Update)
	store.GET("/redemptions", middleware.RequireCapability(policy, authz.OpViewItems, ""), itemHandler.Redemptions)
	if cfg.Store.RedeemEnabled {
		store.POST("/redemptions", middleware.RequireCapability(policy, authz.OpRedeemItem, ""), itemHandler.Redeem)
	}

	incidents := protected.Group("/incidents")
	incidents.GET("", middleware.RequireCapability(policy, authz.OpViewIncidents, ""), incidentHandler.List)
	incidents.GET("/:id", middleware.RequireCapability(policy, authz.OpViewIncidents, ""), incidentHandler.Get)
	incidents.POST("", middleware.RequireCapability(policy, authz.OpCreateIncident, ""), incidentHandler.Create)

	guardians := protected.Group("/guardians")
	guardians.GET("", middleware.RequireCapability(policy, authz.OpViewGuardians, ""), guardianHandler.List)
	guardians.GET("/:id", middleware.RequireCapability(policy, authz.OpViewGuardians, ""), guardianHandler.Get)
	guardians.POST("", middleware.RequireCapability(policy, authz.OpManageGuardians, ""), middleware.Audit(auditRepo, "GUARDIAN_CREATE", "guardian"), guardianHandler.Create)
	guardians.PUT("/:id", middleware.RequireCapability(policy, authz.OpManageGuardians, ""), middleware.Audit(auditRepo, "GUARDIAN_UPDATE", "guardian"), guardianHandler.Update)
	guardians.GET("/:id/students", middleware.RequireCapability(policy, authz.OpViewGuardians, ""), guardianHandler.Students)
	guardians.POST("/:id/students", middleware.RequireCapability(policy, authz.OpManageGuardians, ""), middleware.Audit(auditRepo, "GUARDIAN_LINK", "guardian"), guardianHandler.Link)
	guardians.DELETE("/:id/students/:studentId", middleware.RequireCapability(policy, authz.OpManageGuardians, ""), middleware.Audit(auditRepo, "GUARDIAN_UNLINK", "guardian"), guardianHandler.Unlink)

	protected.GET("/activity", middleware.RequireCapability(policy, authz.OpViewFeed, ""), activityHandler.Feed)
	protected.GET("/audit", middleware.RequireCapability(policy, authz.OpViewAudit, ""), auditHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
