package httptransport

import (
	"errors"

	"aliasmail/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	service.ErrInvalidAddress:   "别名地址格式无效",
	service.ErrInvalidDomain:    "域名格式无效",
	service.ErrDomainNotAllowed: "域名不在允许列表中",
	service.ErrDomainExists:     "域名已存在",
	service.ErrDomainNotFound:   "域名不存在",
	service.ErrAliasNotFound:    "别名不存在",
	service.ErrMessageNotFound:  "邮件不存在",
	service.ErrMissingID:        "缺少邮件 ID",
	service.ErrNoToken:          "邮箱尚未完成授权",
	service.ErrUpstream:         "上游邮箱访问失败",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"

	// 授权相关
	MsgAuthURLFailed   = "生成授权地址失败"
	MsgExchangeFailed  = "授权码兑换失败"
	MsgMissingAuthCode = "缺少授权码"
	MsgRevokeFailed    = "吊销授权失败"
	MsgNoToken         = "邮箱尚未完成授权"

	// 别名相关
	MsgAliasCreateFailed = "注册别名失败"
	MsgAliasListFailed   = "获取别名列表失败"
	MsgAliasDeleteFailed = "删除别名失败"

	// 邮件相关
	MsgMessageListFailed = "获取邮件列表失败"
	MsgMessageGetFailed  = "获取邮件详情失败"

	// 域名相关
	MsgDomainListFailed   = "获取域名列表失败"
	MsgDomainAddFailed    = "添加域名失败"
	MsgDomainUpdateFailed = "更新域名失败"
	MsgDomainDeleteFailed = "删除域名失败"

	// 日志相关
	MsgLogListFailed   = "获取投递日志失败"
	MsgLogClearFailed  = "清空投递日志失败"
	MsgAuditListFailed = "获取审计记录失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
