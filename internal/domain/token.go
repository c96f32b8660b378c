package domain

import "time"

// TokenRecord 表示持久化的 OAuth 令牌。
// 整个系统只保存一份令牌，对应被轮询的真实邮箱。
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Merge 用刷新结果更新令牌记录。
// 刷新响应通常不回传 refresh_token，此时保留旧值，
// 避免一次静默刷新把长期凭证抹掉。
func (t TokenRecord) Merge(updated TokenRecord) TokenRecord {
	merged := updated
	if merged.RefreshToken == "" {
		merged.RefreshToken = t.RefreshToken
	}
	if merged.TokenType == "" {
		merged.TokenType = t.TokenType
	}
	return merged
}

// Valid 判断访问令牌当前是否可用。
func (t TokenRecord) Valid() bool {
	if t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return time.Now().Before(t.Expiry)
}
