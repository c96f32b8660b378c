package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/service"
)

// AdminHandler 处理管理端接口。
type AdminHandler struct {
	admin       *service.AdminService
	aliases     *service.AliasService
	domains     *service.DomainService
	logs        *service.LogService
	audit       *service.AuditService
	authManager *auth.Manager
}

// NewAdminHandler 创建管理接口处理器。
func NewAdminHandler(admin *service.AdminService, aliases *service.AliasService, domains *service.DomainService, logs *service.LogService, audit *service.AuditService, authManager *auth.Manager) *AdminHandler {
	return &AdminHandler{
		admin:       admin,
		aliases:     aliases,
		domains:     domains,
		logs:        logs,
		audit:       audit,
		authManager: authManager,
	}
}

// Stats 返回运行概况统计。
func (h *AdminHandler) Stats(c *gin.Context) {
	hasToken, err := h.authManager.HasToken()
	if err != nil {
		hasToken = false
	}
	Success(c, h.admin.Stats(hasToken))
}

// ListAliases 返回全部别名（最近注册在前）。
func (h *AdminHandler) ListAliases(c *gin.Context) {
	aliases, err := h.aliases.List()
	if err != nil {
		InternalError(c, MsgAliasListFailed)
		return
	}
	Success(c, gin.H{"aliases": aliases, "count": len(aliases), "storage": h.admin.Descriptor()})
}

// DeleteAlias 删除指定别名并记录审计。
func (h *AdminHandler) DeleteAlias(c *gin.Context) {
	address := c.Param("address")

	if err := h.aliases.Delete(address); err != nil {
		if errors.Is(err, service.ErrAliasNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgAliasDeleteFailed)
		return
	}

	h.audit.Record(domain.AuditAliasDeleted, c.ClientIP(), c.Request.UserAgent(), map[string]string{
		"address": address,
	})
	SuccessWithMsg(c, "别名已删除", gin.H{"address": address, "removed": 1})
}

// ListDomains 返回全部域名（含停用状态）。
func (h *AdminHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.ListAll()
	if err != nil {
		InternalError(c, MsgDomainListFailed)
		return
	}
	Success(c, gin.H{"domains": domains, "count": len(domains), "storage": h.admin.Descriptor()})
}

// AddDomainRequest 添加域名请求
type AddDomainRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddDomain 新增一个允许注册的域名。
func (h *AdminHandler) AddDomain(c *gin.Context) {
	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	dom, err := h.domains.Add(req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDomain):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrDomainExists):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgDomainAddFailed)
		}
		return
	}

	h.audit.Record(domain.AuditDomainAdded, c.ClientIP(), c.Request.UserAgent(), map[string]string{
		"name": dom.Name,
	})
	Created(c, dom)
}

// DeleteDomain 删除域名并记录审计。
func (h *AdminHandler) DeleteDomain(c *gin.Context) {
	name := c.Param("name")

	if err := h.domains.Delete(name); err != nil {
		if errors.Is(err, service.ErrDomainNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgDomainDeleteFailed)
		return
	}

	h.audit.Record(domain.AuditDomainDeleted, c.ClientIP(), c.Request.UserAgent(), map[string]string{
		"name": name,
	})
	SuccessWithMsg(c, "域名已删除", gin.H{"name": name, "removed": 1})
}

// UpdateDomainRequest 启停域名请求
type UpdateDomainRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateDomain 启用或停用一个域名。
func (h *AdminHandler) UpdateDomain(c *gin.Context) {
	var req UpdateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	dom, err := h.domains.SetActive(c.Param("name"), *req.Active)
	if err != nil {
		if errors.Is(err, service.ErrDomainNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgDomainUpdateFailed)
		return
	}
	Success(c, dom)
}

// ListLogs 返回投递日志（最近活跃在前）。
func (h *AdminHandler) ListLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		limit = parsed
	}

	logs, err := h.logs.List(limit, c.Query("alias"))
	if err != nil {
		InternalError(c, MsgLogListFailed)
		return
	}
	Success(c, gin.H{"logs": logs, "count": len(logs), "storage": h.admin.Descriptor()})
}

// ClearLogs 清空全部投递日志并记录审计。
func (h *AdminHandler) ClearLogs(c *gin.Context) {
	removed, err := h.logs.Clear()
	if err != nil {
		InternalError(c, MsgLogClearFailed)
		return
	}

	h.audit.Record(domain.AuditLogsCleared, c.ClientIP(), c.Request.UserAgent(), map[string]string{
		"removed": strconv.Itoa(removed),
	})
	SuccessWithMsg(c, "投递日志已清空", gin.H{"removed": removed})
}

// ListAudit 返回审计记录（最新在前）。
func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.audit.List(limit)
	if err != nil {
		InternalError(c, MsgAuditListFailed)
		return
	}
	Success(c, gin.H{"entries": entries, "count": len(entries)})
}
