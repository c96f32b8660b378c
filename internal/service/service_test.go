package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

// memStore 测试用内存存储
type memStore struct {
	mu      sync.Mutex
	aliases []domain.Alias
	domains []domain.Domain
	logs    []domain.LogEntry
	audit   []domain.AuditEntry
	token   *domain.TokenRecord
}

func (s *memStore) LoadAliases() ([]domain.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Alias(nil), s.aliases...), nil
}

func (s *memStore) SaveAliases(aliases []domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases = append([]domain.Alias(nil), aliases...)
	return nil
}

func (s *memStore) LoadDomains() ([]domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Domain(nil), s.domains...), nil
}

func (s *memStore) SaveDomains(domains []domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = append([]domain.Domain(nil), domains...)
	return nil
}

func (s *memStore) LoadLogs() ([]domain.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LogEntry(nil), s.logs...), nil
}

func (s *memStore) SaveLogs(logs []domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append([]domain.LogEntry(nil), logs...)
	return nil
}

func (s *memStore) LoadAudit() ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.audit...), nil
}

func (s *memStore) SaveAudit(entries []domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append([]domain.AuditEntry(nil), entries...)
	return nil
}

func (s *memStore) LoadToken() (domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return domain.TokenRecord{}, storage.ErrTokenNotFound
	}
	return *s.token, nil
}

func (s *memStore) SaveToken(token domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := token
	s.token = &t
	return nil
}

func (s *memStore) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return storage.ErrTokenNotFound
	}
	s.token = nil
	return nil
}

func (s *memStore) HasToken() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil, nil
}

func (s *memStore) Mode() string  { return "memory" }
func (s *memStore) Health() error { return nil }
func (s *memStore) Close() error  { return nil }

func storeWithDomain(name string) *memStore {
	return &memStore{domains: []domain.Domain{{Name: name, Active: true, CreatedAt: time.Now().UTC()}}}
}

func TestAliasServiceRegister(t *testing.T) {
	t.Run("注册新别名", func(t *testing.T) {
		store := storeWithDomain("example.com")
		svc := NewAliasService(store, store, zap.NewNop())

		alias, err := svc.Register("Demo@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "demo@example.com", alias.Address)
		assert.Equal(t, 1, alias.Hits)
		assert.True(t, alias.Active)
	})

	t.Run("重复注册幂等且累加次数", func(t *testing.T) {
		store := storeWithDomain("example.com")
		svc := NewAliasService(store, store, zap.NewNop())

		first, err := svc.Register("demo@example.com")
		require.NoError(t, err)
		second, err := svc.Register("demo@example.com")
		require.NoError(t, err)

		assert.Equal(t, 2, second.Hits)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.Equal(t, 1, svc.Count())
	})

	t.Run("域名未启用", func(t *testing.T) {
		store := storeWithDomain("example.com")
		store.domains[0].Active = false
		svc := NewAliasService(store, store, zap.NewNop())

		_, err := svc.Register("demo@example.com")
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("域名不在目录中", func(t *testing.T) {
		store := storeWithDomain("example.com")
		svc := NewAliasService(store, store, zap.NewNop())

		_, err := svc.Register("demo@other.com")
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("地址格式无效", func(t *testing.T) {
		store := storeWithDomain("example.com")
		svc := NewAliasService(store, store, zap.NewNop())

		_, err := svc.Register("not-an-address")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}

func TestAliasServiceDelete(t *testing.T) {
	store := storeWithDomain("example.com")
	svc := NewAliasService(store, store, zap.NewNop())

	_, err := svc.Register("demo@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete("DEMO@example.com"))
	assert.Zero(t, svc.Count())
	assert.ErrorIs(t, svc.Delete("demo@example.com"), ErrAliasNotFound)
}

func TestAliasServiceTouch(t *testing.T) {
	store := storeWithDomain("example.com")
	svc := NewAliasService(store, store, zap.NewNop())

	_, err := svc.Register("demo@example.com")
	require.NoError(t, err)

	svc.Touch("demo@example.com")
	aliases, err := store.LoadAliases()
	require.NoError(t, err)
	assert.Equal(t, 2, aliases[0].Hits)

	// 未知别名静默忽略
	svc.Touch("ghost@example.com")
	assert.Equal(t, 1, svc.Count())
}

func TestDomainService(t *testing.T) {
	t.Run("添加与去重", func(t *testing.T) {
		store := &memStore{}
		svc := NewDomainService(store, zap.NewNop())

		added, err := svc.Add("Example.COM")
		require.NoError(t, err)
		assert.Equal(t, "example.com", added.Name)
		assert.True(t, added.Active)

		_, err = svc.Add("example.com")
		assert.ErrorIs(t, err, ErrDomainExists)
	})

	t.Run("格式无效", func(t *testing.T) {
		svc := NewDomainService(&memStore{}, zap.NewNop())
		_, err := svc.Add("not a domain")
		assert.ErrorIs(t, err, ErrInvalidDomain)
	})

	t.Run("公开列表只含启用域名", func(t *testing.T) {
		store := &memStore{domains: []domain.Domain{
			{Name: "a.com", Active: true},
			{Name: "b.com", Active: false},
		}}
		svc := NewDomainService(store, zap.NewNop())

		names, err := svc.ListActive()
		require.NoError(t, err)
		assert.Equal(t, []string{"a.com"}, names)
	})

	t.Run("停用后不再出现在公开列表", func(t *testing.T) {
		store := &memStore{domains: []domain.Domain{{Name: "a.com", Active: true}}}
		svc := NewDomainService(store, zap.NewNop())

		updated, err := svc.SetActive("A.com", false)
		require.NoError(t, err)
		assert.False(t, updated.Active)

		names, err := svc.ListActive()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("启停不存在的域名", func(t *testing.T) {
		svc := NewDomainService(&memStore{}, zap.NewNop())
		_, err := svc.SetActive("ghost.com", true)
		assert.ErrorIs(t, err, ErrDomainNotFound)
	})

	t.Run("删除不存在的域名", func(t *testing.T) {
		svc := NewDomainService(&memStore{}, zap.NewNop())
		assert.ErrorIs(t, svc.Delete("ghost.com"), ErrDomainNotFound)
	})
}

func TestLogServiceTouch(t *testing.T) {
	t.Run("相同邮件不产生重复记录", func(t *testing.T) {
		store := &memStore{}
		svc := NewLogService(store, zap.NewNop())

		entry := domain.LogEntry{ID: "m1", Subject: "hello"}
		svc.Touch([]domain.LogEntry{entry})
		svc.Touch([]domain.LogEntry{entry})

		assert.Equal(t, 1, svc.Count())
	})

	t.Run("容量上限保留最近记录", func(t *testing.T) {
		store := &memStore{}
		svc := NewLogService(store, zap.NewNop())

		batch := make([]domain.LogEntry, 0, maxLogEntries+10)
		for i := 0; i < maxLogEntries+10; i++ {
			batch = append(batch, domain.LogEntry{ID: fmt.Sprintf("m%d", i)})
		}
		svc.Touch(batch)

		assert.Equal(t, maxLogEntries, svc.Count())
	})

	t.Run("保留首次记录的别名归属", func(t *testing.T) {
		store := &memStore{}
		svc := NewLogService(store, zap.NewNop())

		svc.Touch([]domain.LogEntry{{ID: "m1", Alias: "demo@example.com"}})
		svc.Touch([]domain.LogEntry{{ID: "m1"}})

		logs, err := store.LoadLogs()
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "demo@example.com", logs[0].Alias)
	})
}

func TestLogServiceList(t *testing.T) {
	store := &memStore{}
	svc := NewLogService(store, zap.NewNop())

	batch := make([]domain.LogEntry, 0, 100)
	for i := 0; i < 100; i++ {
		batch = append(batch, domain.LogEntry{ID: fmt.Sprintf("m%d", i)})
	}
	svc.Touch(batch)

	t.Run("默认条数", func(t *testing.T) {
		logs, err := svc.List(0, "")
		require.NoError(t, err)
		assert.Len(t, logs, defaultLogLimit)
	})

	t.Run("超过上限被截断", func(t *testing.T) {
		logs, err := svc.List(10000, "")
		require.NoError(t, err)
		assert.Len(t, logs, 100)
	})

	t.Run("按别名过滤", func(t *testing.T) {
		store := &memStore{}
		filtered := NewLogService(store, zap.NewNop())
		filtered.Touch([]domain.LogEntry{
			{ID: "a1", Alias: "demo@example.com"},
			{ID: "a2", Alias: "other@example.com"},
			{ID: "a3", Alias: "demo@example.com"},
		})

		logs, err := filtered.List(0, "DEMO@example.com")
		require.NoError(t, err)
		require.Len(t, logs, 2)
		for _, l := range logs {
			assert.Equal(t, "demo@example.com", l.Alias)
		}
	})
}

func TestLogServiceClear(t *testing.T) {
	store := &memStore{}
	svc := NewLogService(store, zap.NewNop())

	svc.Touch([]domain.LogEntry{{ID: "m1"}, {ID: "m2"}})
	removed, err := svc.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, svc.Count())
}

func TestAuditService(t *testing.T) {
	t.Run("记录与排序", func(t *testing.T) {
		store := &memStore{}
		svc := NewAuditService(store, zap.NewNop())

		svc.Record(domain.AuditDomainAdded, "1.2.3.4", "curl", map[string]string{"domain": "a.com"})
		svc.Record(domain.AuditLogsCleared, "1.2.3.4", "curl", nil)

		entries, err := svc.List(0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, domain.AuditLogsCleared, entries[0].Action)
		assert.NotEmpty(t, entries[0].ID)
	})

	t.Run("容量上限", func(t *testing.T) {
		store := &memStore{}
		svc := NewAuditService(store, zap.NewNop())

		for i := 0; i < maxAuditEntries+5; i++ {
			svc.Record(domain.AuditAliasDeleted, "", "", nil)
		}

		all, err := store.LoadAudit()
		require.NoError(t, err)
		assert.Len(t, all, maxAuditEntries)
	})
}

func TestAdminServiceStats(t *testing.T) {
	store := storeWithDomain("example.com")
	aliases := NewAliasService(store, store, zap.NewNop())
	domains := NewDomainService(store, zap.NewNop())
	logs := NewLogService(store, zap.NewNop())
	svc := NewAdminService(store, aliases, domains, logs)

	_, err := aliases.Register("demo@example.com")
	require.NoError(t, err)

	stats := svc.Stats(true)
	assert.Equal(t, "memory", stats.StorageMode)
	assert.True(t, stats.StorageOK)
	assert.Equal(t, 1, stats.AliasCount)
	assert.Equal(t, 1, stats.DomainCount)
	assert.True(t, stats.HasToken)
	assert.NotEmpty(t, stats.Instance)
}
