package cache

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// PendingStates 管理 OAuth 授权流程中的一次性 state 随机值。
// 每个 state 为 24 字节随机数的十六进制表示，只能被消费一次，
// 超时未消费的条目由后台清理。
type PendingStates struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPendingStates 创建 state 注册表
func NewPendingStates(ttl, sweepInterval time.Duration) *PendingStates {
	p := &PendingStates{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go p.cleanupLoop(sweepInterval)
	return p
}

// Create 生成并登记一个新的 state。
func (p *PendingStates) Create() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机 state 失败: %w", err)
	}
	state := hex.EncodeToString(buf)

	p.mu.Lock()
	p.entries[state] = time.Now().Add(p.ttl)
	p.mu.Unlock()

	return state, nil
}

// Consume 消费一个 state，成功与否都会将其移除。
// 返回 false 表示 state 不存在或已过期。
func (p *PendingStates) Consume(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	expiresAt, ok := p.entries[state]
	if !ok {
		return false
	}
	delete(p.entries, state)
	return time.Now().Before(expiresAt)
}

// Len 返回当前待消费的 state 数量。
func (p *PendingStates) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close 停止后台清理
func (p *PendingStates) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}

func (p *PendingStates) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			now := time.Now()
			p.mu.Lock()
			for state, expiresAt := range p.entries {
				if now.After(expiresAt) {
					delete(p.entries, state)
				}
			}
			p.mu.Unlock()
		}
	}
}
