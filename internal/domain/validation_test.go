package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	t.Run("合法地址", func(t *testing.T) {
		addr, dom, err := ValidateAddress("Demo.User+tag@Example.COM")
		require.NoError(t, err)
		assert.Equal(t, "demo.user+tag@example.com", addr)
		assert.Equal(t, "example.com", dom)
	})

	t.Run("空地址", func(t *testing.T) {
		_, _, err := ValidateAddress("   ")
		assert.Error(t, err)
	})

	t.Run("缺少域名", func(t *testing.T) {
		_, _, err := ValidateAddress("user@")
		assert.Error(t, err)
	})

	t.Run("本地部分过长", func(t *testing.T) {
		_, _, err := ValidateAddress(strings.Repeat("a", 65) + "@example.com")
		assert.Error(t, err)
	})

	t.Run("总长度过长", func(t *testing.T) {
		_, _, err := ValidateAddress(strings.Repeat("a", 60) + "@" + strings.Repeat("b", 200) + ".com")
		assert.Error(t, err)
	})

	t.Run("非法字符", func(t *testing.T) {
		_, _, err := ValidateAddress("us er@example.com")
		assert.Error(t, err)
	})
}

func TestValidateDomain(t *testing.T) {
	t.Run("合法域名", func(t *testing.T) {
		assert.NoError(t, ValidateDomain("mail.example.com"))
	})

	t.Run("单标签域名", func(t *testing.T) {
		assert.Error(t, ValidateDomain("localhost"))
	})

	t.Run("域名过长", func(t *testing.T) {
		assert.Error(t, ValidateDomain(strings.Repeat("a", 191)+".com"))
	})

	t.Run("非法字符", func(t *testing.T) {
		assert.Error(t, ValidateDomain("exa_mple.com"))
	})
}

func TestTokenRecordMerge(t *testing.T) {
	t.Run("刷新响应保留旧的刷新令牌", func(t *testing.T) {
		old := TokenRecord{AccessToken: "old", RefreshToken: "refresh-1", TokenType: "Bearer"}
		merged := old.Merge(TokenRecord{AccessToken: "new", Expiry: time.Now().Add(time.Hour)})
		assert.Equal(t, "new", merged.AccessToken)
		assert.Equal(t, "refresh-1", merged.RefreshToken)
		assert.Equal(t, "Bearer", merged.TokenType)
	})

	t.Run("新的刷新令牌覆盖旧值", func(t *testing.T) {
		old := TokenRecord{AccessToken: "old", RefreshToken: "refresh-1"}
		merged := old.Merge(TokenRecord{AccessToken: "new", RefreshToken: "refresh-2"})
		assert.Equal(t, "refresh-2", merged.RefreshToken)
	})
}

func TestTokenRecordValid(t *testing.T) {
	assert.False(t, TokenRecord{}.Valid())
	assert.True(t, TokenRecord{AccessToken: "a"}.Valid())
	assert.True(t, TokenRecord{AccessToken: "a", Expiry: time.Now().Add(time.Minute)}.Valid())
	assert.False(t, TokenRecord{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}.Valid())
}
