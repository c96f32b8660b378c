package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AdminAuth 管理端鉴权中间件。
// 支持两种凭证：带 email 声明的 Bearer JWT（邮箱须在白名单内），
// 或 X-Admin-Key 头携带的静态密钥。
type AdminAuth struct {
	jwtSecret     []byte
	allowedEmails map[string]struct{}
	adminKey      string
	logger        *zap.Logger
}

// NewAdminAuth 创建管理端鉴权中间件。
func NewAdminAuth(jwtSecret string, allowedEmails []string, adminKey string, logger *zap.Logger) *AdminAuth {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &AdminAuth{
		jwtSecret:     []byte(jwtSecret),
		allowedEmails: allowed,
		adminKey:      adminKey,
		logger:        logger,
	}
}

// RequireAdmin 要求管理员权限。
// 未配置 JWT 密钥时 Bearer 通道整体关闭；
// Bearer 令牌解析失败或两种凭证都缺失返回 401，
// 令牌有效但邮箱不在白名单内返回 403；白名单为空时放行任意有效令牌。
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			// 空密钥会让任何人都能伪造签名，直接拒绝
			if len(a.jwtSecret) == 0 {
				a.logger.Warn("未配置 JWT 密钥，拒绝 Bearer 凭证", zap.String("ip", c.ClientIP()))
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
				c.Abort()
				return
			}
			email, err := a.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				a.logger.Warn("管理端令牌校验失败", zap.String("ip", c.ClientIP()), zap.Error(err))
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
				c.Abort()
				return
			}
			if len(a.allowedEmails) > 0 {
				if _, ok := a.allowedEmails[email]; !ok {
					a.logger.Warn("管理端邮箱不在白名单内",
						zap.String("email", email), zap.String("ip", c.ClientIP()))
					c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
					c.Abort()
					return
				}
			}
			c.Set("adminEmail", email)
			c.Next()
			return
		}

		if key := c.GetHeader("X-Admin-Key"); key != "" && a.adminKey != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(a.adminKey)) == 1 {
				c.Set("adminEmail", "")
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}

// verifyToken 校验 HS256 签名并取出 email 声明。
func (a *AdminAuth) verifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("意外的签名算法: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("令牌无效")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("令牌缺少 email 声明")
	}
	return strings.ToLower(email), nil
}
