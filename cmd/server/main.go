package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/config"
	"aliasmail/backend/internal/health"
	"aliasmail/backend/internal/logger"
	"aliasmail/backend/internal/mailbox"
	"aliasmail/backend/internal/monitoring"
	"aliasmail/backend/internal/service"
	"aliasmail/backend/internal/storage"
	"aliasmail/backend/internal/storage/file"
	"aliasmail/backend/internal/storage/sqlstore"
	httptransport "aliasmail/backend/internal/transport/http"
)

// 缓存与 state 的清扫周期
const sweepInterval = time.Minute

// OAuth state 的有效期
const stateTTL = 10 * time.Minute

// main 启动别名邮箱后端服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting aliasmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("storage_mode", cfg.Storage.Mode),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 初始化存储层
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer func() { _ = store.Close() }()

	// 初始化缓存层
	upstreamCache, redisCache, err := initializeCache(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize cache: %v", err))
	}
	defer func() { _ = upstreamCache.Close() }()

	// OAuth state 登记表
	states := cache.NewPendingStates(stateTTL, sweepInterval)
	defer func() { _ = states.Close() }()

	// 初始化授权管理器与上游邮箱
	authManager := auth.NewManager(
		cfg.OAuth.ClientID,
		cfg.OAuth.ClientSecret,
		cfg.OAuth.RedirectURL,
		store,
		states,
		log,
	)
	provider := mailbox.NewGmailProvider(authManager.TokenSource, cfg.Upstream.RPS, log)

	// 初始化服务层
	aliasService := service.NewAliasService(store, store, log)
	domainService := service.NewDomainService(store, log)
	logService := service.NewLogService(store, log)
	auditService := service.NewAuditService(store, log)
	metrics := monitoring.NewMetrics()
	inboxService := service.NewInboxService(
		provider,
		upstreamCache,
		aliasService,
		logService,
		log,
		service.WithDefaultMax(cfg.Upstream.MaxMessages),
		service.WithInboxMetrics(metrics),
	)
	adminService := service.NewAdminService(store, aliasService, domainService, logService)

	// 初始化健康检查
	healthChecker := health.NewChecker(store, log)
	if redisCache != nil {
		healthChecker.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return redisCache.Ping(ctx)
		})
	}

	// 创建 HTTP 服务器
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		AuthManager:   authManager,
		Prober:        provider,
		Cache:         upstreamCache,
		AliasService:  aliasService,
		DomainService: domainService,
		InboxService:  inboxService,
		LogService:    logService,
		AuditService:  auditService,
		AdminService:  adminService,
		Health:        healthChecker,
		Metrics:       metrics,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 运行时长指标上报 goroutine
	group.Go(func() error {
		started := time.Now()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.UpdateSystemUptime(time.Since(started))
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储后端。
//
// file 模式把各集合落盘为 JSON 文件；postgres/mysql 模式经 GORM 落库。
// 两种模式下令牌都按 storage.token_secret 加密（留空则明文）。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Storage.Mode == "file" {
		store, err := file.NewStore(cfg.Storage.DataDir, cfg.Storage.TokenSecret, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		log.Info("using file storage", zap.String("dir", cfg.Storage.DataDir))
		return store, nil
	}

	var opts []sqlstore.Option
	if cfg.Storage.TokenSecret != "" {
		cipher, err := file.NewTokenCipher(cfg.Storage.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create token cipher: %w", err)
		}
		opts = append(opts, sqlstore.WithTokenSealer(cipher.Encrypt, cipher.Decrypt))
	}

	store, err := sqlstore.NewStore(cfg.Storage.Mode, cfg.Storage.DSN, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sql store: %w", err)
	}
	log.Info("using sql storage", zap.String("driver", cfg.Storage.Mode))
	return store, nil
}

// initializeCache 根据配置选择缓存后端。
// 使用 Redis 时额外返回 *RedisCache，便于挂载就绪检查。
func initializeCache(cfg *config.Config, log *zap.Logger) (cache.Cache, *cache.RedisCache, error) {
	if cfg.Cache.Backend == "redis" {
		redisCache, err := cache.NewRedisCache(
			cfg.Cache.RedisAddress,
			cfg.Cache.RedisPassword,
			cfg.Cache.RedisDB,
			cfg.Cache.TTL,
			log,
		)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, redisCache, nil
	}

	log.Info("using local cache", zap.Duration("ttl", cfg.Cache.TTL))
	return cache.NewLocalCache(cfg.Cache.TTL, sweepInterval), nil, nil
}
