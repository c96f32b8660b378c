package cache

import (
	"context"
	"time"
)

// 缓存键前缀约定：
//   - msg:{id}          无别名列表中的邮件摘要
//   - msg:{id}:{alias}  按别名过滤后的邮件摘要
//   - detail:{id}       邮件详情
const (
	KeyPrefixMessage = "msg:"
	KeyPrefixDetail  = "detail:"
)

// Cache 定义 TTL 缓存的统一接口。
// 值为 JSON 编码后的字节，本地实现与 Redis 实现行为一致。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Len(ctx context.Context) int
	Close() error
}
