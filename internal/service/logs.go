package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// 有界集合的容量上限
const (
	maxLogEntries   = 500
	maxAuditEntries = 1000
)

// 日志查询的条数限制
const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

// LogService 封装投递日志的业务逻辑。
// 日志按最近出现时间倒序保存，总量有上限，旧记录被挤出。
type LogService struct {
	logRepo storage.LogRepository
	logger  *zap.Logger
}

// NewLogService 创建投递日志服务。
func NewLogService(logRepo storage.LogRepository, logger *zap.Logger) *LogService {
	return &LogService{logRepo: logRepo, logger: logger}
}

// Touch 把一批邮件摘要并入投递日志。
// 已存在的记录更新最近出现时间，不产生重复；
// 超出容量时保留最近的记录。
func (s *LogService) Touch(entries []domain.LogEntry) {
	if len(entries) == 0 {
		return
	}

	logs, err := s.logRepo.LoadLogs()
	if err != nil {
		return
	}

	index := make(map[string]int, len(logs))
	for i, l := range logs {
		index[l.ID] = i
	}

	now := time.Now().UTC()
	for _, e := range entries {
		e.LastSeenAt = now
		if i, ok := index[e.ID]; ok {
			// 保留首次记录的别名归属
			if e.Alias == "" {
				e.Alias = logs[i].Alias
			}
			logs[i] = e
		} else {
			logs = append(logs, e)
			index[e.ID] = len(logs) - 1
		}
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LastSeenAt.After(logs[j].LastSeenAt)
	})
	if len(logs) > maxLogEntries {
		logs = logs[:maxLogEntries]
	}

	if err := s.logRepo.SaveLogs(logs); err != nil {
		s.logger.Warn("保存投递日志失败", zap.Error(err))
	}
}

// List 返回最近的投递日志，alias 非空时只返回该别名的记录。
// limit 不合法时取默认值，超过上限时截断。
func (s *LogService) List(limit int, alias string) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	alias = domain.NormalizeAddress(alias)

	logs, err := s.logRepo.LoadLogs()
	if err != nil {
		return nil, fmt.Errorf("读取投递日志失败: %w", err)
	}

	if alias != "" {
		kept := logs[:0]
		for _, l := range logs {
			if l.Alias == alias {
				kept = append(kept, l)
			}
		}
		logs = kept
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LastSeenAt.After(logs[j].LastSeenAt)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// Clear 清空投递日志并返回清除的条数。
func (s *LogService) Clear() (int, error) {
	logs, err := s.logRepo.LoadLogs()
	if err != nil {
		return 0, fmt.Errorf("读取投递日志失败: %w", err)
	}
	removed := len(logs)

	if err := s.logRepo.SaveLogs(nil); err != nil {
		return 0, fmt.Errorf("清空投递日志失败: %w", err)
	}
	return removed, nil
}

// Count 返回日志条数。
func (s *LogService) Count() int {
	logs, err := s.logRepo.LoadLogs()
	if err != nil {
		return 0
	}
	return len(logs)
}

// AuditService 封装管理操作审计的业务逻辑。
type AuditService struct {
	auditRepo storage.AuditRepository
	logger    *zap.Logger
}

// NewAuditService 创建审计服务。
func NewAuditService(auditRepo storage.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{auditRepo: auditRepo, logger: logger}
}

// Record 追加一条审计记录，超出容量时丢弃最旧的。
// 审计失败不影响主流程，只记录日志。
func (s *AuditService) Record(action, ip, userAgent string, meta map[string]string) {
	entries, err := s.auditRepo.LoadAudit()
	if err != nil {
		return
	}

	entries = append([]domain.AuditEntry{{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		Meta:      meta,
	}}, entries...)

	if len(entries) > maxAuditEntries {
		entries = entries[:maxAuditEntries]
	}

	if err := s.auditRepo.SaveAudit(entries); err != nil {
		s.logger.Warn("保存审计记录失败", zap.String("action", action), zap.Error(err))
	}
}

// List 返回最近的审计记录。
func (s *AuditService) List(limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := s.auditRepo.LoadAudit()
	if err != nil {
		return nil, fmt.Errorf("读取审计记录失败: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
