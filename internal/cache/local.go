package cache

import (
	"context"
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期，读取时惰性淘汰
// - 后台定期清理过期条目，Close 后停止
type LocalCache struct {
	data sync.Map
	ttl  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间
//   - sweepInterval: 后台清理周期
func NewLocalCache(ttl, sweepInterval time.Duration) *LocalCache {
	c := &LocalCache{
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go c.cleanupLoop(sweepInterval)
	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*localEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return nil, false
	}
	return entry.value, true
}

// Set 设置缓存值
func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	c.data.Store(key, &localEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

// Delete 删除缓存值
func (c *LocalCache) Delete(_ context.Context, key string) {
	c.data.Delete(key)
}

// Len 返回未过期的条目数
func (c *LocalCache) Len(_ context.Context) int {
	count := 0
	now := time.Now()
	c.data.Range(func(_, value interface{}) bool {
		if !now.After(value.(*localEntry).expiresAt) {
			count++
		}
		return true
	})
	return count
}

// Close 停止后台清理
func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, value interface{}) bool {
				if now.After(value.(*localEntry).expiresAt) {
					c.data.Delete(key)
				}
				return true
			})
		}
	}
}
