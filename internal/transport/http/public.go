package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"aliasmail/backend/internal/monitoring"
	"aliasmail/backend/internal/service"
)

// PublicHandler 处理无需鉴权的别名与邮件接口。
type PublicHandler struct {
	aliases *service.AliasService
	domains *service.DomainService
	inbox   *service.InboxService
	metrics *monitoring.Metrics
}

// NewPublicHandler 创建公开接口处理器。
func NewPublicHandler(aliases *service.AliasService, domains *service.DomainService, inbox *service.InboxService, metrics *monitoring.Metrics) *PublicHandler {
	return &PublicHandler{aliases: aliases, domains: domains, inbox: inbox, metrics: metrics}
}

// RegisterAliasRequest 注册别名请求
type RegisterAliasRequest struct {
	Address string `json:"address" binding:"required"`
}

// RegisterAlias 注册（或刷新）一个接收别名。
func (h *PublicHandler) RegisterAlias(c *gin.Context) {
	var req RegisterAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.Register(req.Address)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAddress) || errors.Is(err, service.ErrDomainNotAllowed) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgAliasCreateFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAliasRegistered()
	}
	Created(c, alias)
}

// ListMessages 拉取别名命中的邮件摘要列表。
func (h *PublicHandler) ListMessages(c *gin.Context) {
	alias := c.Query("alias")

	var max int64
	if raw := c.Query("max"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		max = parsed
	}

	messages, err := h.inbox.List(c.Request.Context(), alias, max)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAddress), errors.Is(err, service.ErrDomainNotAllowed):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrNoToken):
			Unauthorized(c, MsgNoToken)
		default:
			InternalError(c, GetErrorMessage(err))
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMessageServed()
	}
	Success(c, gin.H{"messages": messages, "count": len(messages)})
}

// GetMessage 获取单封邮件详情，若能识别验证码则附带返回。
func (h *PublicHandler) GetMessage(c *gin.Context) {
	detail, err := h.inbox.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingID):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrMessageNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrNoToken):
			Unauthorized(c, MsgNoToken)
		default:
			InternalError(c, GetErrorMessage(err))
		}
		return
	}

	if h.metrics != nil && detail.OTP != "" {
		h.metrics.RecordOTPExtracted()
	}
	Success(c, detail)
}

// ListDomains 返回当前启用的域名列表。
func (h *PublicHandler) ListDomains(c *gin.Context) {
	names, err := h.domains.ListActive()
	if err != nil {
		InternalError(c, MsgDomainListFailed)
		return
	}
	Success(c, gin.H{"domains": names})
}
