package file

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// TokenCipher 负责令牌落盘前的 AES-CBC 加密。
// 序列化格式为 "ivhex:cipherhex"，每次加密使用新的随机 IV。
type TokenCipher struct {
	key []byte
}

// NewTokenCipher 根据配置的密钥创建加密器。
// 密钥为 32/48/64 位十六进制时直接解码为 AES-128/192/256 密钥，
// 其他任意口令通过 scrypt 派生为 32 字节密钥。
func NewTokenCipher(secret string) (*TokenCipher, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("加密密钥不能为空")
	}

	if decoded, err := hex.DecodeString(secret); err == nil {
		switch len(decoded) {
		case 16, 24, 32:
			return &TokenCipher{key: decoded}, nil
		}
	}

	// scrypt 参数与盐固定，保证同一口令重启后仍能解密旧数据
	salt := sha256.Sum256([]byte("aliasmail-token-cipher"))
	key, err := scrypt.Key([]byte(secret), salt[:16], 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("密钥派生失败: %w", err)
	}
	return &TokenCipher{key: key}, nil
}

// Encrypt 加密明文并返回 "ivhex:cipherhex" 格式的字符串。
func (c *TokenCipher) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("创建加密块失败: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("生成随机 IV 失败: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt 解密 "ivhex:cipherhex" 格式的密文。
func (c *TokenCipher) Decrypt(serialized string) ([]byte, error) {
	parts := strings.SplitN(serialized, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("密文格式无效")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("IV 无效")
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("密文无效")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("创建加密块失败: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("填充长度无效")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("填充内容无效")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("填充内容无效")
		}
	}
	return data[:len(data)-padding], nil
}
