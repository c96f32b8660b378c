package domain

import "time"

// 审计动作常量
const (
	AuditTokenRevoked  = "token_revoked"
	AuditAliasDeleted  = "alias_deleted"
	AuditDomainAdded   = "domain_added"
	AuditDomainDeleted = "domain_deleted"
	AuditLogsCleared   = "logs_cleared"
)

// AuditEntry 表示一条管理操作审计记录。
type AuditEntry struct {
	ID        string            `json:"id" gorm:"primaryKey;type:varchar(36)"` // 记录 ID（uuid）
	Timestamp time.Time         `json:"timestamp" gorm:"index"`                // 操作时间
	Action    string            `json:"action" gorm:"type:varchar(64)"`        // 动作标识
	IP        string            `json:"ip"`                                    // 来源 IP
	UserAgent string            `json:"userAgent"`                             // User-Agent
	Meta      map[string]string `json:"meta,omitempty" gorm:"serializer:json"` // 附加信息
}
