package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/service"
)

// AuthHandler 处理上游邮箱的授权流程。
type AuthHandler struct {
	manager *auth.Manager
	audit   *service.AuditService
	logger  *zap.Logger
}

// NewAuthHandler 创建授权处理器。
func NewAuthHandler(manager *auth.Manager, audit *service.AuditService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{manager: manager, audit: audit, logger: logger}
}

// AuthURL 签发一个带一次性 state 的授权地址。
func (h *AuthHandler) AuthURL(c *gin.Context) {
	url, err := h.manager.AuthURL()
	if err != nil {
		h.logger.Error("生成授权地址失败", zap.Error(err))
		InternalError(c, MsgAuthURLFailed)
		return
	}
	Success(c, gin.H{"url": url})
}

// Callback 接收授权码并兑换、持久化令牌。
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		BadRequest(c, MsgMissingAuthCode)
		return
	}

	if err := h.manager.Exchange(c.Request.Context(), code, c.Query("state")); err != nil {
		h.logger.Error("授权码兑换失败", zap.Error(err))
		InternalError(c, MsgExchangeFailed)
		return
	}

	SuccessWithMsg(c, "授权完成", gin.H{"authorized": true})
}

// Revoke 吊销并删除已存令牌。
func (h *AuthHandler) Revoke(c *gin.Context) {
	if err := h.manager.Revoke(c.Request.Context()); err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			NotFound(c, MsgNoToken)
			return
		}
		h.logger.Error("吊销授权失败", zap.Error(err))
		InternalError(c, MsgRevokeFailed)
		return
	}

	h.audit.Record(domain.AuditTokenRevoked, c.ClientIP(), c.Request.UserAgent(), nil)
	SuccessWithMsg(c, "授权已吊销", gin.H{"revoked": true})
}
