package storage

import (
	"errors"

	"aliasmail/backend/internal/domain"
)

var (
	// ErrTokenNotFound 令牌不存在错误
	ErrTokenNotFound = errors.New("token not found")
)

// AliasRepository 定义别名集合的整体读写操作。
// 读取失败时实现应记录日志并返回空集合，保证服务可以降级运行。
type AliasRepository interface {
	LoadAliases() ([]domain.Alias, error)
	SaveAliases(aliases []domain.Alias) error
}

// DomainRepository 定义域名集合的整体读写操作。
type DomainRepository interface {
	LoadDomains() ([]domain.Domain, error)
	SaveDomains(domains []domain.Domain) error
}

// LogRepository 定义投递日志集合的整体读写操作。
type LogRepository interface {
	LoadLogs() ([]domain.LogEntry, error)
	SaveLogs(logs []domain.LogEntry) error
}

// AuditRepository 定义审计记录集合的整体读写操作。
type AuditRepository interface {
	LoadAudit() ([]domain.AuditEntry, error)
	SaveAudit(entries []domain.AuditEntry) error
}

// TokenRepository 定义 OAuth 令牌的读写操作。
// 令牌不存在时 LoadToken 返回 ErrTokenNotFound。
type TokenRepository interface {
	LoadToken() (domain.TokenRecord, error)
	SaveToken(token domain.TokenRecord) error
	DeleteToken() error
	HasToken() (bool, error)
}

// Store 定义完整的存储接口。
type Store interface {
	AliasRepository
	DomainRepository
	LogRepository
	AuditRepository
	TokenRepository

	// 工具方法
	Mode() string // 存储模式标识（file / postgres / mysql）
	Health() error
	Close() error
}
