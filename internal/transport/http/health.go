package httptransport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/health"
	"aliasmail/backend/internal/service"
)

// CredentialProber 能访问上游账号概况，用于令牌健康检查。
type CredentialProber interface {
	Profile(ctx context.Context) (string, error)
}

// HealthHandler 处理健康概览与授权状态查询。
type HealthHandler struct {
	checker     *health.Checker
	authManager *auth.Manager
	prober      CredentialProber
	cache       cache.Cache
	admin       *service.AdminService
	maxMessages int64
}

// NewHealthHandler 创建健康检查处理器。
func NewHealthHandler(checker *health.Checker, authManager *auth.Manager, prober CredentialProber, c cache.Cache, admin *service.AdminService, maxMessages int64) *HealthHandler {
	return &HealthHandler{
		checker:     checker,
		authManager: authManager,
		prober:      prober,
		cache:       c,
		admin:       admin,
		maxMessages: maxMessages,
	}
}

// Overview 返回服务整体状态概览。
func (h *HealthHandler) Overview(c *gin.Context) {
	hasToken, err := h.authManager.HasToken()
	if err != nil {
		hasToken = false
	}

	storageOK := h.checker.StorageOK()
	httpStatus := http.StatusOK
	if !storageOK {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, Response{
		Code: httpStatus,
		Msg:  "成功",
		Data: gin.H{
			"ok":          storageOK,
			"hasToken":    hasToken,
			"maxMessages": h.maxMessages,
			"cacheSize":   h.cache.Len(c.Request.Context()),
			"storage":     h.admin.Descriptor(),
			"checks":      h.checker.Snapshot(),
		},
	})
}

// Token 探测上游授权状态：实际访问账号概况并测量耗时。
func (h *HealthHandler) Token(c *gin.Context) {
	start := time.Now()
	email, err := h.prober.Profile(c.Request.Context())
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			NotFound(c, MsgNoToken)
			return
		}
		c.JSON(http.StatusOK, Response{
			Code: CodeSuccess,
			Msg:  "成功",
			Data: gin.H{
				"authorized": false,
				"latencyMs":  latency.Milliseconds(),
				"error":      err.Error(),
			},
		})
		return
	}

	Success(c, gin.H{
		"authorized": true,
		"email":      email,
		"latencyMs":  latency.Milliseconds(),
	})
}
