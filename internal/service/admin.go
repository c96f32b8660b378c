package service

import (
	"time"

	"github.com/google/uuid"

	"aliasmail/backend/internal/storage"
)

// Stats 描述系统当前的运行概况。
type Stats struct {
	Instance    string    `json:"instance"`
	StartedAt   time.Time `json:"startedAt"`
	UptimeSecs  int64     `json:"uptimeSecs"`
	StorageMode string    `json:"storageMode"`
	StorageOK   bool      `json:"storageOk"`
	AliasCount  int       `json:"aliasCount"`
	DomainCount int       `json:"domainCount"`
	LogCount    int       `json:"logCount"`
	HasToken    bool      `json:"hasToken"`
}

// AdminService 汇总管理端统计信息。
type AdminService struct {
	store   storage.Store
	aliases *AliasService
	domains *DomainService
	logs    *LogService

	instanceID string
	startedAt  time.Time
}

// NewAdminService 创建管理统计服务，每个进程持有独立的实例标识。
func NewAdminService(store storage.Store, aliases *AliasService, domains *DomainService, logs *LogService) *AdminService {
	return &AdminService{
		store:      store,
		aliases:    aliases,
		domains:    domains,
		logs:       logs,
		instanceID: uuid.NewString(),
		startedAt:  time.Now().UTC(),
	}
}

// StorageDescriptor 描述当前存储后端，附加在管理端响应里。
type StorageDescriptor struct {
	Mode     string `json:"mode"`
	Instance string `json:"instance"`
}

// Descriptor 返回存储描述信息。
func (s *AdminService) Descriptor() StorageDescriptor {
	return StorageDescriptor{Mode: s.store.Mode(), Instance: s.instanceID}
}

// Stats 汇总当前运行状态与各集合规模。
func (s *AdminService) Stats(hasToken bool) Stats {
	return Stats{
		Instance:    s.instanceID,
		StartedAt:   s.startedAt,
		UptimeSecs:  int64(time.Since(s.startedAt).Seconds()),
		StorageMode: s.store.Mode(),
		StorageOK:   s.store.Health() == nil,
		AliasCount:  s.aliases.Count(),
		DomainCount: s.domains.Count(),
		LogCount:    s.logs.Count(),
		HasToken:    hasToken,
	}
}
