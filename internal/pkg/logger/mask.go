package logger

import (
	"strings"
)

// MaskAuthorization 保留 Bearer 前缀，只显示末四位
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + maskLast4(parts[1])
	}
	return maskLast4(value)
}

// MaskAPIKey 只保留末四位
func MaskAPIKey(value string) string {
	return maskLast4(value)
}

// MaskPaymentNumber 付款账号只显示末四位数字
func MaskPaymentNumber(value string) string {
	return maskLast4(value)
}

func maskLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
