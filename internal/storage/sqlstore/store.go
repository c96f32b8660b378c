package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// 令牌在 KV 表中的键名
const tokenKey = "token"

// Store 数据库存储实现（支持 PostgreSQL 和 MySQL）。
// 每个集合对应一张表，保存为事务内的整体替换；
// 令牌保存在 KV 表中，可选加密后落库。
type Store struct {
	db         *gorm.DB
	driverName string
	sealToken  func([]byte) (string, error)
	openToken  func(string) ([]byte, error)
	logger     *zap.Logger
}

// kvRecord KV 表记录
type kvRecord struct {
	Key       string    `gorm:"primaryKey;type:varchar(64);column:key"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time
}

func (kvRecord) TableName() string { return "app_kv" }

// 表名映射，与文件存储的集合一一对应
type aliasRecord struct{ domain.Alias }
type domainRecord struct{ domain.Domain }
type logRecord struct{ domain.LogEntry }
type auditRecord struct{ domain.AuditEntry }

func (aliasRecord) TableName() string  { return "app_aliases" }
func (domainRecord) TableName() string { return "app_domains" }
func (logRecord) TableName() string    { return "app_logs" }
func (auditRecord) TableName() string  { return "app_audit" }

// Option 配置存储的可选行为
type Option func(*Store)

// WithTokenSealer 设置令牌落库前的加密与解密函数。
func WithTokenSealer(seal func([]byte) (string, error), open func(string) ([]byte, error)) Option {
	return func(s *Store) {
		s.sealToken = seal
		s.openToken = open
	}
}

// NewStore 创建数据库存储并执行自动迁移。
func NewStore(driverName, dsn string, logger *zap.Logger, opts ...Option) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	switch driverName {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s（支持 postgres、mysql）", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	store := &Store{db: db, driverName: driverName, logger: logger}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&aliasRecord{},
		&domainRecord{},
		&logRecord{},
		&auditRecord{},
		&kvRecord{},
	)
}

// ========== 别名 ==========

func (s *Store) LoadAliases() ([]domain.Alias, error) {
	var records []aliasRecord
	if err := s.db.Order("created_at").Find(&records).Error; err != nil {
		s.logger.Warn("读取别名表失败，按空集合处理", zap.Error(err))
		return nil, nil
	}
	aliases := make([]domain.Alias, len(records))
	for i, r := range records {
		aliases[i] = r.Alias
	}
	return aliases, nil
}

func (s *Store) SaveAliases(aliases []domain.Alias) error {
	records := make([]aliasRecord, len(aliases))
	for i, a := range aliases {
		records[i] = aliasRecord{Alias: a}
	}
	return s.replaceAll(&aliasRecord{}, records)
}

// ========== 域名 ==========

func (s *Store) LoadDomains() ([]domain.Domain, error) {
	var records []domainRecord
	if err := s.db.Order("created_at").Find(&records).Error; err != nil {
		s.logger.Warn("读取域名表失败，按空集合处理", zap.Error(err))
		return nil, nil
	}
	domains := make([]domain.Domain, len(records))
	for i, r := range records {
		domains[i] = r.Domain
	}
	return domains, nil
}

func (s *Store) SaveDomains(domains []domain.Domain) error {
	records := make([]domainRecord, len(domains))
	for i, d := range domains {
		records[i] = domainRecord{Domain: d}
	}
	return s.replaceAll(&domainRecord{}, records)
}

// ========== 投递日志 ==========

func (s *Store) LoadLogs() ([]domain.LogEntry, error) {
	var records []logRecord
	if err := s.db.Order("last_seen_at desc").Find(&records).Error; err != nil {
		s.logger.Warn("读取日志表失败，按空集合处理", zap.Error(err))
		return nil, nil
	}
	logs := make([]domain.LogEntry, len(records))
	for i, r := range records {
		logs[i] = r.LogEntry
	}
	return logs, nil
}

func (s *Store) SaveLogs(logs []domain.LogEntry) error {
	records := make([]logRecord, len(logs))
	for i, l := range logs {
		records[i] = logRecord{LogEntry: l}
	}
	return s.replaceAll(&logRecord{}, records)
}

// ========== 审计 ==========

func (s *Store) LoadAudit() ([]domain.AuditEntry, error) {
	var records []auditRecord
	if err := s.db.Order("timestamp desc").Find(&records).Error; err != nil {
		s.logger.Warn("读取审计表失败，按空集合处理", zap.Error(err))
		return nil, nil
	}
	entries := make([]domain.AuditEntry, len(records))
	for i, r := range records {
		entries[i] = r.AuditEntry
	}
	return entries, nil
}

func (s *Store) SaveAudit(entries []domain.AuditEntry) error {
	records := make([]auditRecord, len(entries))
	for i, e := range entries {
		records[i] = auditRecord{AuditEntry: e}
	}
	return s.replaceAll(&auditRecord{}, records)
}

// ========== 令牌 ==========

func (s *Store) LoadToken() (domain.TokenRecord, error) {
	var record kvRecord
	err := s.db.First(&record, "key = ?", tokenKey).Error
	if err == gorm.ErrRecordNotFound {
		return domain.TokenRecord{}, storage.ErrTokenNotFound
	}
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("读取令牌记录失败: %w", err)
	}

	data := []byte(record.Value)
	if s.openToken != nil {
		plaintext, err := s.openToken(record.Value)
		if err != nil {
			return domain.TokenRecord{}, fmt.Errorf("解密令牌失败: %w", err)
		}
		data = plaintext
	}

	var token domain.TokenRecord
	if err := json.Unmarshal(data, &token); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("解析令牌失败: %w", err)
	}
	return token, nil
}

func (s *Store) SaveToken(token domain.TokenRecord) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("序列化令牌失败: %w", err)
	}

	value := string(data)
	if s.sealToken != nil {
		value, err = s.sealToken(data)
		if err != nil {
			return fmt.Errorf("加密令牌失败: %w", err)
		}
	}

	record := kvRecord{Key: tokenKey, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.Save(&record).Error
}

func (s *Store) DeleteToken() error {
	result := s.db.Delete(&kvRecord{}, "key = ?", tokenKey)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrTokenNotFound
	}
	return nil
}

func (s *Store) HasToken() (bool, error) {
	var count int64
	if err := s.db.Model(&kvRecord{}).Where("key = ?", tokenKey).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ========== 工具方法 ==========

func (s *Store) Mode() string {
	return s.driverName
}

func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// replaceAll 在单个事务内清空表并写入新集合。
func (s *Store) replaceAll(model interface{}, records interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("清空集合失败: %w", err)
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("写入集合失败: %w", err)
		}
		return nil
	})
}
