package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache 基于 Redis 的缓存实现，多实例部署时共享缓存内容。
type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedisCache 创建 Redis 缓存并测试连接。
func NewRedisCache(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info("已连接 Redis 缓存",
		zap.String("address", addr),
		zap.Int("db", db),
	)

	return &RedisCache{rdb: rdb, ttl: ttl, log: log}, nil
}

// Get 获取缓存值，网络错误按未命中处理。
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("读取 Redis 缓存失败", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return val, true
}

// Set 设置缓存值，失败只记录日志。
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("写入 Redis 缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// Delete 删除缓存值
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("删除 Redis 缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// Len 返回当前库中的键数量，出错时返回 0。
func (c *RedisCache) Len(ctx context.Context) int {
	size, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		c.log.Warn("读取 Redis 键数量失败", zap.Error(err))
		return 0
	}
	return int(size)
}

// Ping 检查 Redis 连通性，用于就绪探针。
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
