package service

import "errors"

var (
	// ErrInvalidAddress 别名地址格式无效错误
	ErrInvalidAddress = errors.New("invalid alias address")
	// ErrInvalidDomain 域名格式无效错误
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrDomainNotAllowed 域名未启用错误
	ErrDomainNotAllowed = errors.New("domain not allowed")
	// ErrDomainExists 域名已存在错误
	ErrDomainExists = errors.New("domain already exists")
	// ErrDomainNotFound 域名不存在错误
	ErrDomainNotFound = errors.New("domain not found")
	// ErrAliasNotFound 别名不存在错误
	ErrAliasNotFound = errors.New("alias not found")
	// ErrMessageNotFound 邮件不存在错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrMissingID 缺少邮件 ID 错误
	ErrMissingID = errors.New("missing message id")
	// ErrNoToken 尚未完成邮箱授权错误
	ErrNoToken = errors.New("mailbox not authorized")
	// ErrUpstream 上游邮箱访问失败错误
	ErrUpstream = errors.New("upstream mailbox error")
)
