package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"aliasmail/backend/internal/cache"
	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

var (
	// ErrNoToken 尚未完成授权错误
	ErrNoToken = errors.New("no stored token")
	// ErrStateMismatch state 校验失败错误
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// 授权只申请只读邮箱范围
const gmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// 令牌吊销端点
const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// Manager 管理上游邮箱的 OAuth 凭证生命周期：
// 授权地址签发、回调兑换、静默刷新与持久化、吊销。
type Manager struct {
	config *oauth2.Config
	store  storage.Store
	states *cache.PendingStates
	logger *zap.Logger

	httpClient *http.Client

	mu sync.Mutex // 保护刷新后的令牌合并写回
}

// NewManager 创建凭证管理器。
func NewManager(clientID, clientSecret, redirectURL string, store storage.Store, states *cache.PendingStates, logger *zap.Logger) *Manager {
	return &Manager{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		store:      store,
		states:     states,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL 签发一个带一次性 state 的授权地址。
// 使用离线模式并强制同意页，保证每次授权都能拿到刷新令牌。
func (m *Manager) AuthURL() (string, error) {
	state, err := m.states.Create()
	if err != nil {
		return "", err
	}
	return m.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Exchange 用回调授权码兑换令牌并持久化。
// state 校验失败只记录警告，兑换仍然继续，
// 单用户部署下回调可能来自进程重启前签发的授权地址。
func (m *Manager) Exchange(ctx context.Context, code, state string) error {
	if !m.states.Consume(state) {
		m.logger.Warn("state 校验失败，继续兑换", zap.String("state", state))
	}

	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("兑换授权码失败: %w", err)
	}

	record := domain.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}

	// 重新授权未返回刷新令牌时沿用已存的
	if record.RefreshToken == "" {
		if existing, err := m.store.LoadToken(); err == nil {
			record = existing.Merge(record)
		}
	}

	if err := m.store.SaveToken(record); err != nil {
		return fmt.Errorf("保存令牌失败: %w", err)
	}

	m.logger.Info("授权完成，令牌已保存",
		zap.Bool("hasRefreshToken", record.RefreshToken != ""))
	return nil
}

// TokenSource 返回带持久化回写的令牌源。
// 底层刷新产生新令牌时，与已存记录合并后写回存储。
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	record, err := m.store.LoadToken()
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, ErrNoToken
		}
		return nil, err
	}

	current := &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		TokenType:    record.TokenType,
		Expiry:       record.Expiry,
	}

	return &persistingTokenSource{
		manager: m,
		base:    m.config.TokenSource(ctx, current),
		last:    current,
	}, nil
}

// Revoke 吊销并删除已存令牌。
// 上游吊销失败不阻止本地删除。
func (m *Manager) Revoke(ctx context.Context) error {
	record, err := m.store.LoadToken()
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrNoToken
		}
		return err
	}

	credential := record.RefreshToken
	if credential == "" {
		credential = record.AccessToken
	}
	if credential != "" {
		if err := m.revokeUpstream(ctx, credential); err != nil {
			m.logger.Warn("上游吊销失败，仍删除本地令牌", zap.Error(err))
		}
	}

	if err := m.store.DeleteToken(); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		return fmt.Errorf("删除令牌失败: %w", err)
	}
	return nil
}

// HasToken 返回是否存在已持久化的令牌。
func (m *Manager) HasToken() (bool, error) {
	return m.store.HasToken()
}

func (m *Manager) revokeUpstream(ctx context.Context, credential string) error {
	form := url.Values{"token": {credential}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("吊销端点返回状态码 %d", resp.StatusCode)
	}
	return nil
}

// persistToken 把刷新得到的新令牌合并写回存储。
func (m *Manager) persistToken(token *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := domain.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}

	if existing, err := m.store.LoadToken(); err == nil {
		updated = existing.Merge(updated)
	}

	if err := m.store.SaveToken(updated); err != nil {
		m.logger.Error("刷新后的令牌写回失败", zap.Error(err))
		return
	}
	m.logger.Debug("刷新后的令牌已写回", zap.Time("expiry", updated.Expiry))
}

// persistingTokenSource 在底层令牌源刷新出新令牌时触发持久化。
type persistingTokenSource struct {
	manager *Manager
	base    oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := s.last == nil || s.last.AccessToken != token.AccessToken
	s.last = token
	s.mu.Unlock()

	if changed {
		s.manager.persistToken(token)
	}
	return token, nil
}
