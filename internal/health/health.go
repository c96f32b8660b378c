package health

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"aliasmail/backend/internal/storage"
)

// Checker 健康检查器，封装存活与就绪两类探针。
type Checker struct {
	handler healthcheck.Handler
	store   storage.Store
	logger  *zap.Logger
}

// NewChecker 创建健康检查器。
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
	}

	c.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(500))
	c.handler.AddReadinessCheck("storage", func() error {
		return c.store.Health()
	})

	return c
}

// AddReadinessCheck 追加一项就绪检查（例如 Redis 连通性）。
func (c *Checker) AddReadinessCheck(name string, check healthcheck.Check) {
	c.handler.AddReadinessCheck(name, check)
}

// LiveEndpoint 返回存活探针处理器。
func (c *Checker) LiveEndpoint() http.Handler {
	return http.HandlerFunc(c.handler.LiveEndpoint)
}

// ReadyEndpoint 返回就绪探针处理器。
func (c *Checker) ReadyEndpoint() http.Handler {
	return http.HandlerFunc(c.handler.ReadyEndpoint)
}

// Snapshot 返回各组件当前状态，用于概览接口。
func (c *Checker) Snapshot() map[string]string {
	results := make(map[string]string)

	if err := c.store.Health(); err != nil {
		results["storage"] = "ERROR: " + err.Error()
	} else {
		results["storage"] = "OK"
	}

	results["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return results
}

// StorageMode 返回当前存储后端类型。
func (c *Checker) StorageMode() string {
	return c.store.Mode()
}

// StorageOK 报告存储后端是否可用。
func (c *Checker) StorageOK() bool {
	return c.store.Health() == nil
}
