package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/config"
	"aliasmail/backend/internal/health"
	"aliasmail/backend/internal/middleware"
	"aliasmail/backend/internal/monitoring"
	"aliasmail/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	AuthManager   *auth.Manager
	Prober        CredentialProber
	Cache         cache.Cache
	AliasService  *service.AliasService
	DomainService *service.DomainService
	InboxService  *service.InboxService
	LogService    *service.LogService
	AuditService  *service.AuditService
	AdminService  *service.AdminService
	Health        *health.Checker
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.ErrorHandler(deps.Logger))
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(middleware.ValidateContentType("application/json"))

	if deps.Metrics != nil {
		router.Use(middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger).HTTPMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthManager, deps.AuditService, deps.Logger)
	publicHandler := NewPublicHandler(deps.AliasService, deps.DomainService, deps.InboxService, deps.Metrics)
	adminHandler := NewAdminHandler(deps.AdminService, deps.AliasService, deps.DomainService, deps.LogService, deps.AuditService, deps.AuthManager)
	healthHandler := NewHealthHandler(deps.Health, deps.AuthManager, deps.Prober, deps.Cache, deps.AdminService, deps.Config.Upstream.MaxMessages)

	// 管理端鉴权中间件
	adminAuth := middleware.NewAdminAuth(
		deps.Config.Admin.JWTSecret,
		deps.Config.Admin.Emails,
		deps.Config.Admin.Key,
		deps.Logger,
	)

	// ========== 健康与指标 ==========
	router.GET("/health", healthHandler.Overview)
	router.GET("/health/token", healthHandler.Token)
	router.GET("/health/live", gin.WrapH(deps.Health.LiveEndpoint()))
	router.GET("/health/ready", gin.WrapH(deps.Health.ReadyEndpoint()))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// ========== 授权 ==========
	router.GET("/auth/url", authHandler.AuthURL)
	router.GET("/oauth2callback", authHandler.Callback)
	router.POST("/auth/revoke", adminAuth.RequireAdmin(), authHandler.Revoke)

	// ========== 公开 API ==========
	api := router.Group("/api")
	{
		api.POST("/aliases", publicHandler.RegisterAlias)
		api.GET("/messages", publicHandler.ListMessages)
		api.GET("/messages/:id", publicHandler.GetMessage)
		api.GET("/domains", publicHandler.ListDomains)
	}

	// ========== 管理 API ==========
	adminRoutes := router.Group("/api/admin")
	adminRoutes.Use(adminAuth.RequireAdmin())
	{
		adminRoutes.GET("/stats", adminHandler.Stats)
		adminRoutes.GET("/aliases", adminHandler.ListAliases)
		adminRoutes.DELETE("/aliases/:address", adminHandler.DeleteAlias)
		adminRoutes.GET("/domains", adminHandler.ListDomains)
		adminRoutes.POST("/domains", adminHandler.AddDomain)
		adminRoutes.PATCH("/domains/:name", adminHandler.UpdateDomain)
		adminRoutes.DELETE("/domains/:name", adminHandler.DeleteDomain)
		adminRoutes.GET("/logs", adminHandler.ListLogs)
		adminRoutes.DELETE("/logs", adminHandler.ClearLogs)
		adminRoutes.GET("/audit", adminHandler.ListAudit)
	}

	return router
}
