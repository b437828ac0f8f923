package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// SecretBytes 256 位随机数
const SecretBytes = 32

// Generate 生成带前缀的密钥：prefix + 64 位十六进制
func Generate(prefix string) (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// HasPrefix 判断是否像本系统签发的 key
func HasPrefix(key, prefix string) bool {
	return prefix != "" && strings.HasPrefix(key, prefix) && len(key) == len(prefix)+SecretBytes*2
}

// Mask 只保留前缀与后四位
func Mask(key, prefix string) string {
	if key == "" {
		return ""
	}
	body := strings.TrimPrefix(key, prefix)
	if len(body) <= 4 {
		return prefix + strings.Repeat("*", len(body))
	}
	return prefix + strings.Repeat("*", len(body)-4) + body[len(body)-4:]
}
