package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aliasmail/backend/internal/domain"
	"aliasmail/backend/internal/storage"
)

func newTestStore(t *testing.T, secret string) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), secret, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStoreCollections(t *testing.T) {
	s := newTestStore(t, "")

	t.Run("空目录返回空集合", func(t *testing.T) {
		aliases, err := s.LoadAliases()
		require.NoError(t, err)
		assert.Empty(t, aliases)
	})

	t.Run("保存后读取一致", func(t *testing.T) {
		want := []domain.Alias{
			{Address: "demo@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second), Hits: 3, Active: true},
		}
		require.NoError(t, s.SaveAliases(want))

		got, err := s.LoadAliases()
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want[0].Address, got[0].Address)
		assert.Equal(t, want[0].Hits, got[0].Hits)
	})

	t.Run("损坏文件按空集合处理", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(s.dir, domainsFile), []byte("{not json"), 0o644))
		domains, err := s.LoadDomains()
		require.NoError(t, err)
		assert.Empty(t, domains)
	})

	t.Run("写入不留临时文件", func(t *testing.T) {
		require.NoError(t, s.SaveDomains([]domain.Domain{{Name: "example.com", Active: true}}))
		entries, err := os.ReadDir(s.dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-")
		}
	})
}

func TestStoreToken(t *testing.T) {
	t.Run("不存在时返回 ErrTokenNotFound", func(t *testing.T) {
		s := newTestStore(t, "")
		_, err := s.LoadToken()
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)

		ok, err := s.HasToken()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("明文存取", func(t *testing.T) {
		s := newTestStore(t, "")
		want := domain.TokenRecord{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}
		require.NoError(t, s.SaveToken(want))

		got, err := s.LoadToken()
		require.NoError(t, err)
		assert.Equal(t, want.RefreshToken, got.RefreshToken)
	})

	t.Run("加密存取", func(t *testing.T) {
		s := newTestStore(t, "passphrase-secret")
		want := domain.TokenRecord{AccessToken: "at", RefreshToken: "rt"}
		require.NoError(t, s.SaveToken(want))

		// 落盘内容不能包含明文令牌
		raw, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "at")
		assert.Contains(t, string(raw), ":")

		got, err := s.LoadToken()
		require.NoError(t, err)
		assert.Equal(t, want.AccessToken, got.AccessToken)
	})

	t.Run("删除后再删除返回 ErrTokenNotFound", func(t *testing.T) {
		s := newTestStore(t, "")
		require.NoError(t, s.SaveToken(domain.TokenRecord{AccessToken: "at"}))
		require.NoError(t, s.DeleteToken())
		assert.ErrorIs(t, s.DeleteToken(), storage.ErrTokenNotFound)
	})
}

func TestStoreHealth(t *testing.T) {
	s := newTestStore(t, "")
	assert.NoError(t, s.Health())
	assert.Equal(t, "file", s.Mode())
}

func TestTokenCipher(t *testing.T) {
	t.Run("十六进制密钥直接使用", func(t *testing.T) {
		c, err := NewTokenCipher(strings.Repeat("ab", 16))
		require.NoError(t, err)
		assert.Len(t, c.key, 16)
	})

	t.Run("口令派生为 32 字节密钥", func(t *testing.T) {
		c, err := NewTokenCipher("some passphrase")
		require.NoError(t, err)
		assert.Len(t, c.key, 32)
	})

	t.Run("加解密往返", func(t *testing.T) {
		c, err := NewTokenCipher("secret")
		require.NoError(t, err)

		sealed, err := c.Encrypt([]byte(`{"access_token":"x"}`))
		require.NoError(t, err)

		plain, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, `{"access_token":"x"}`, string(plain))
	})

	t.Run("每次加密使用新 IV", func(t *testing.T) {
		c, err := NewTokenCipher("secret")
		require.NoError(t, err)

		a, err := c.Encrypt([]byte("same"))
		require.NoError(t, err)
		b, err := c.Encrypt([]byte("same"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("格式错误的密文", func(t *testing.T) {
		c, err := NewTokenCipher("secret")
		require.NoError(t, err)

		_, err = c.Decrypt("no-colon")
		assert.Error(t, err)
		_, err = c.Decrypt("zzzz:0011")
		assert.Error(t, err)
	})

	t.Run("密钥不匹配解密失败", func(t *testing.T) {
		a, _ := NewTokenCipher("secret-a")
		b, _ := NewTokenCipher("secret-b")

		sealed, err := a.Encrypt([]byte("payload"))
		require.NoError(t, err)
		_, err = b.Decrypt(sealed)
		assert.Error(t, err)
	})
}
