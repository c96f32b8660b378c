package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// 各集合对应的文件名
const (
	aliasesFile = "aliases.json"
	domainsFile = "domains.json"
	logsFile    = "logs.json"
	auditFile   = "audit.json"
	tokenFile   = "token.json"
)

// Store 文件存储实现。
// 每个集合对应数据目录下的一个 JSON 文件，写入通过临时文件加重命名完成，
// 读取失败时记录日志并返回空集合，令牌文件可选加密。
type Store struct {
	dir    string
	cipher *TokenCipher // 为 nil 时令牌明文存储
	logger *zap.Logger

	mu sync.Mutex // 串行化写入，避免并发重命名互相覆盖
}

// NewStore 创建文件存储实例。
// tokenSecret 非空时令牌在落盘前加密。
func NewStore(dir, tokenSecret string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("数据目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	var cipher *TokenCipher
	if tokenSecret != "" {
		var err error
		cipher, err = NewTokenCipher(tokenSecret)
		if err != nil {
			return nil, err
		}
	}

	return &Store{dir: dir, cipher: cipher, logger: logger}, nil
}

// ========== 别名 ==========

func (s *Store) LoadAliases() ([]domain.Alias, error) {
	var aliases []domain.Alias
	s.loadCollection(aliasesFile, &aliases)
	return aliases, nil
}

func (s *Store) SaveAliases(aliases []domain.Alias) error {
	return s.saveCollection(aliasesFile, aliases)
}

// ========== 域名 ==========

func (s *Store) LoadDomains() ([]domain.Domain, error) {
	var domains []domain.Domain
	s.loadCollection(domainsFile, &domains)
	return domains, nil
}

func (s *Store) SaveDomains(domains []domain.Domain) error {
	return s.saveCollection(domainsFile, domains)
}

// ========== 投递日志 ==========

func (s *Store) LoadLogs() ([]domain.LogEntry, error) {
	var logs []domain.LogEntry
	s.loadCollection(logsFile, &logs)
	return logs, nil
}

func (s *Store) SaveLogs(logs []domain.LogEntry) error {
	return s.saveCollection(logsFile, logs)
}

// ========== 审计 ==========

func (s *Store) LoadAudit() ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	s.loadCollection(auditFile, &entries)
	return entries, nil
}

func (s *Store) SaveAudit(entries []domain.AuditEntry) error {
	return s.saveCollection(auditFile, entries)
}

// ========== 令牌 ==========

func (s *Store) LoadToken() (domain.TokenRecord, error) {
	path := filepath.Join(s.dir, tokenFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TokenRecord{}, storage.ErrTokenNotFound
		}
		return domain.TokenRecord{}, fmt.Errorf("读取令牌文件失败: %w", err)
	}

	if s.cipher != nil {
		plaintext, err := s.cipher.Decrypt(string(data))
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
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化令牌失败: %w", err)
	}

	if s.cipher != nil {
		serialized, err := s.cipher.Encrypt(data)
		if err != nil {
			return fmt.Errorf("加密令牌失败: %w", err)
		}
		data = []byte(serialized)
	}

	return s.writeAtomic(tokenFile, data)
}

func (s *Store) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, tokenFile))
	if os.IsNotExist(err) {
		return storage.ErrTokenNotFound
	}
	return err
}

func (s *Store) HasToken() (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, tokenFile))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ========== 工具方法 ==========

func (s *Store) Mode() string {
	return "file"
}

// Health 检查数据目录是否可写。
func (s *Store) Health() error {
	probe := filepath.Join(s.dir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("数据目录不可写: %w", err)
	}
	return os.Remove(probe)
}

func (s *Store) Close() error {
	return nil
}

// ========== 辅助方法 ==========

// loadCollection 读取集合文件并解析到 out。
// 文件不存在或损坏时保持 out 为空，损坏情况记录警告。
func (s *Store) loadCollection(name string, out interface{}) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("读取集合文件失败，按空集合处理",
				zap.String("file", name), zap.Error(err))
		}
		return
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("集合文件内容损坏，按空集合处理",
			zap.String("file", name), zap.Error(err))
	}
}

func (s *Store) saveCollection(name string, collection interface{}) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化集合失败: %w", err)
	}
	return s.writeAtomic(name, data)
}

// writeAtomic 先写临时文件再重命名，读取方不会看到半写状态。
func (s *Store) writeAtomic(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("重命名文件失败: %w", err)
	}
	return nil
}
