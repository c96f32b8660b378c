package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aliasmail/backend/internal/auth"
	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/mailbox"
)

// fakeProvider 测试用上游邮箱
type fakeProvider struct {
	mu        sync.Mutex
	summaries map[string]mailbox.Summary
	details   map[string]mailbox.Detail
	order     []string
	listErr   error

	metadataCalls int
}

func (p *fakeProvider) ListIDs(_ context.Context, _ mailbox.ListOptions) ([]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]string(nil), p.order...), nil
}

func (p *fakeProvider) Metadata(_ context.Context, id string) (mailbox.Summary, error) {
	p.mu.Lock()
	p.metadataCalls++
	p.mu.Unlock()
	return p.summaries[id], nil
}

func (p *fakeProvider) Get(_ context.Context, id string) (mailbox.Detail, error) {
	detail, ok := p.details[id]
	if !ok {
		return mailbox.Detail{}, mailbox.ErrMessageNotFound
	}
	return detail, nil
}

func newInboxFixture(t *testing.T, provider *fakeProvider) (*InboxService, *memStore) {
	t.Helper()
	store := storeWithDomain("example.com")
	local := cache.NewLocalCache(time.Minute, time.Minute)
	t.Cleanup(func() { local.Close() })

	aliases := NewAliasService(store, store, zap.NewNop())
	logs := NewLogService(store, zap.NewNop())
	return NewInboxService(provider, local, aliases, logs, zap.NewNop()), store
}

func TestInboxList(t *testing.T) {
	provider := &fakeProvider{
		order: []string{"m1", "m2"},
		summaries: map[string]mailbox.Summary{
			"m1": {ID: "m1", Subject: "hi", From: "a@b.com", Recipients: "Demo <demo@example.com>"},
			"m2": {ID: "m2", Subject: "yo", From: "c@d.com", Recipients: "other@example.com"},
		},
	}

	t.Run("无别名返回全部", func(t *testing.T) {
		svc, _ := newInboxFixture(t, provider)
		got, err := svc.List(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "m1", got[0].ID)
	})

	t.Run("按别名过滤并刷新使用记录", func(t *testing.T) {
		svc, store := newInboxFixture(t, provider)
		aliases := NewAliasService(store, store, zap.NewNop())
		_, err := aliases.Register("demo@example.com")
		require.NoError(t, err)

		got, err := svc.List(context.Background(), "DEMO@example.com", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m1", got[0].ID)

		stored, err := store.LoadAliases()
		require.NoError(t, err)
		assert.Equal(t, 2, stored[0].Hits)
	})

	t.Run("结果并入投递日志", func(t *testing.T) {
		svc, store := newInboxFixture(t, provider)
		_, err := svc.List(context.Background(), "", 0)
		require.NoError(t, err)

		logs, err := store.LoadLogs()
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})

	t.Run("二次列表命中缓存", func(t *testing.T) {
		p := &fakeProvider{
			order: []string{"m1"},
			summaries: map[string]mailbox.Summary{
				"m1": {ID: "m1", Subject: "hi"},
			},
		}
		svc, _ := newInboxFixture(t, p)

		_, err := svc.List(context.Background(), "", 0)
		require.NoError(t, err)
		_, err = svc.List(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Equal(t, 1, p.metadataCalls)
	})

	t.Run("非法别名不触发上游拉取", func(t *testing.T) {
		// 校验不过就该返回，listErr 不应被看到
		p := &fakeProvider{listErr: assert.AnError}
		svc, _ := newInboxFixture(t, p)

		_, err := svc.List(context.Background(), "not-an-email", 0)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("域名停用后别名不再收取", func(t *testing.T) {
		p := &fakeProvider{listErr: assert.AnError}
		svc, store := newInboxFixture(t, p)
		domains := NewDomainService(store, zap.NewNop())
		_, err := domains.SetActive("example.com", false)
		require.NoError(t, err)

		_, err = svc.List(context.Background(), "demo@example.com", 0)
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("未授权映射为 ErrNoToken", func(t *testing.T) {
		p := &fakeProvider{listErr: auth.ErrNoToken}
		svc, _ := newInboxFixture(t, p)

		_, err := svc.List(context.Background(), "", 0)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("其他上游错误映射为 ErrUpstream", func(t *testing.T) {
		p := &fakeProvider{listErr: assert.AnError}
		svc, _ := newInboxFixture(t, p)

		_, err := svc.List(context.Background(), "", 0)
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestInboxDetail(t *testing.T) {
	provider := &fakeProvider{
		details: map[string]mailbox.Detail{
			"m1": {ID: "m1", Subject: "login", BodyText: "Your code is 482913"},
		},
	}

	t.Run("返回详情并提取验证码", func(t *testing.T) {
		svc, _ := newInboxFixture(t, provider)
		detail, err := svc.Detail(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, "482913", detail.OTP)
	})

	t.Run("缺少 ID", func(t *testing.T) {
		svc, _ := newInboxFixture(t, provider)
		_, err := svc.Detail(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("邮件不存在", func(t *testing.T) {
		svc, _ := newInboxFixture(t, provider)
		_, err := svc.Detail(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrMessageNotFound)
	})
}
