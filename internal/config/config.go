package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// StorageConfig 定义持久化存储配置
type StorageConfig struct {
	Mode        string // 存储后端: "file"、"postgres" 或 "mysql"
	DataDir     string // file 模式下的数据目录，默认 "data"
	DSN         string // postgres/mysql 模式下的连接字符串
	TokenSecret string // 令牌加密密钥，留空表示令牌明文落盘
}

// CacheConfig 定义上游结果缓存配置
type CacheConfig struct {
	Backend       string        // 缓存后端: "local" 或 "redis"
	RedisAddress  string        // Redis 服务地址，格式 "host:port"
	RedisPassword string        // Redis 认证密码，留空表示无密码
	RedisDB       int           // Redis 数据库编号，默认 0
	TTL           time.Duration // 缓存条目有效期，默认 5 分钟
}

// OAuthConfig 定义上游邮箱的 OAuth 应用凭据
type OAuthConfig struct {
	ClientID     string // OAuth 客户端 ID
	ClientSecret string // OAuth 客户端密钥
	RedirectURL  string // 授权回调地址
}

// AdminConfig 定义管理端鉴权配置
type AdminConfig struct {
	JWTSecret string   // JWT 签名密钥，配置后启用 Bearer 令牌鉴权
	Emails    []string // 允许访问管理端的邮箱白名单（小写）
	Key       string   // 共享管理密钥，经 X-Admin-Key 头提交
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// UpstreamConfig 定义上游邮箱访问参数
type UpstreamConfig struct {
	RPS         float64 // 上游 API 每秒请求数上限，默认 10
	MaxMessages int64   // 单次列表默认拉取的最大邮件数，默认 20
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Storage  StorageConfig  // 持久化存储配置
	Cache    CacheConfig    // 缓存配置
	OAuth    OAuthConfig    // 上游邮箱 OAuth 配置
	Admin    AdminConfig    // 管理端鉴权配置
	CORS     CORSConfig     // 跨域配置
	Upstream UpstreamConfig // 上游访问配置
	Log      LogConfig      // 日志配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ALIASMAIL_
// 例如: ALIASMAIL_SERVER_PORT, ALIASMAIL_OAUTH_CLIENT_ID
func Load() (*Config, error) {
	// .env 文件是可选的，加载失败静默跳过
	loadEnvFile()

	viper.SetEnvPrefix("aliasmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("storage.mode", "file")
	viper.SetDefault("storage.data_dir", "data")
	viper.SetDefault("storage.dsn", "")
	viper.SetDefault("storage.token_secret", "")
	viper.SetDefault("cache.backend", "local")
	viper.SetDefault("cache.redis_address", "localhost:6379")
	viper.SetDefault("cache.redis_password", "")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("oauth.client_id", "")
	viper.SetDefault("oauth.client_secret", "")
	viper.SetDefault("oauth.redirect_url", "http://localhost:8080/oauth2callback")
	viper.SetDefault("admin.jwt_secret", "")
	viper.SetDefault("admin.emails", "")
	viper.SetDefault("admin.key", "")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("upstream.rps", 10.0)
	viper.SetDefault("upstream.max_messages", 20)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")

	mode := strings.ToLower(viper.GetString("storage.mode"))
	switch mode {
	case "file", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("invalid storage.mode %q: must be file, postgres or mysql", mode)
	}

	dsn := viper.GetString("storage.dsn")
	if mode != "file" && dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required when storage.mode is %q", mode)
	}

	cacheBackend := strings.ToLower(viper.GetString("cache.backend"))
	switch cacheBackend {
	case "local", "redis":
	default:
		return nil, fmt.Errorf("invalid cache.backend %q: must be local or redis", cacheBackend)
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("cache.ttl"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	adminEmails := parseList(viper.GetString("admin.emails"))
	for i := range adminEmails {
		adminEmails[i] = strings.ToLower(adminEmails[i])
	}

	jwtSecret := viper.GetString("admin.jwt_secret")
	if jwtSecret != "" && len(jwtSecret) < 32 {
		return nil, fmt.Errorf("admin.jwt_secret must be at least 32 characters long")
	}

	rps := viper.GetFloat64("upstream.rps")
	if rps <= 0 {
		rps = 10
	}

	maxMessages := viper.GetInt64("upstream.max_messages")
	if maxMessages <= 0 {
		maxMessages = 20
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Storage: StorageConfig{
			Mode:        mode,
			DataDir:     viper.GetString("storage.data_dir"),
			DSN:         dsn,
			TokenSecret: viper.GetString("storage.token_secret"),
		},
		Cache: CacheConfig{
			Backend:       cacheBackend,
			RedisAddress:  viper.GetString("cache.redis_address"),
			RedisPassword: viper.GetString("cache.redis_password"),
			RedisDB:       viper.GetInt("cache.redis_db"),
			TTL:           cacheTTL,
		},
		OAuth: OAuthConfig{
			ClientID:     viper.GetString("oauth.client_id"),
			ClientSecret: viper.GetString("oauth.client_secret"),
			RedirectURL:  viper.GetString("oauth.redirect_url"),
		},
		Admin: AdminConfig{
			JWTSecret: jwtSecret,
			Emails:    adminEmails,
			Key:       viper.GetString("admin.key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Upstream: UpstreamConfig{
			RPS:         rps,
			MaxMessages: maxMessages,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
	}

	return cfg, nil
}

// Addr 返回 HTTP 服务器的监听地址。
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parseList 将逗号分隔的字符串解析为字符串切片，去除空白项。
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
