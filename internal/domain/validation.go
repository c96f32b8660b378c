package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// 邮箱地址长度限制
const (
	MaxLocalPartLength = 64  // 本地部分最大长度
	MaxDomainLength    = 190 // 域名部分最大长度
	MaxEmailLength     = 254 // 完整地址最大长度
)

var (
	localPartRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+$`)
	domainRegex    = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?)+$`)
)

// NormalizeAddress 去除首尾空白并转为小写。
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress 校验别名地址的结构合法性。
// 返回规范化后的地址和拆分出的域名部分。
func ValidateAddress(address string) (normalized, dom string, err error) {
	normalized = NormalizeAddress(address)
	if normalized == "" {
		return "", "", fmt.Errorf("地址不能为空")
	}
	if len(normalized) > MaxEmailLength {
		return "", "", fmt.Errorf("地址长度超过 %d 个字符", MaxEmailLength)
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", "", fmt.Errorf("地址格式无效: %w", err)
	}
	at := strings.LastIndex(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return "", "", fmt.Errorf("地址必须包含本地部分和域名")
	}
	local, dom := normalized[:at], normalized[at+1:]
	if len(local) > MaxLocalPartLength {
		return "", "", fmt.Errorf("本地部分长度超过 %d 个字符", MaxLocalPartLength)
	}
	if !localPartRegex.MatchString(local) {
		return "", "", fmt.Errorf("本地部分包含非法字符")
	}
	if err := ValidateDomain(dom); err != nil {
		return "", "", err
	}
	return normalized, dom, nil
}

// ValidateDomain 校验域名的结构合法性。
func ValidateDomain(name string) error {
	name = NormalizeAddress(name)
	if name == "" {
		return fmt.Errorf("域名不能为空")
	}
	if len(name) > MaxDomainLength {
		return fmt.Errorf("域名长度超过 %d 个字符", MaxDomainLength)
	}
	if !domainRegex.MatchString(name) {
		return fmt.Errorf("域名格式无效")
	}
	return nil
}
