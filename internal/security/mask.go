package security

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"salonpay-be/internal/logger"
)

var sensitiveKeys = []string{
	"email", "phone", "mobile", "card", "cvv", "cvc", "pan",
	"token", "secret", "password", "key", "signature", "authorization",
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// MaskSensitiveData walks maps and slices and redacts values stored under
// sensitive-looking keys. The input is not modified.
func MaskSensitiveData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			if isSensitiveKey(key) {
				out[key] = maskValue(key, val)
				continue
			}
			out[key] = MaskSensitiveData(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, val := range v {
			if isSensitiveKey(key) {
				out[key] = maskValue(key, val)
				continue
			}
			out[key] = val
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = MaskSensitiveData(item)
		}
		return out
	default:
		return data
	}
}

func maskValue(key string, val interface{}) string {
	if val == nil {
		return ""
	}
	s := fmt.Sprint(val)
	if strings.Contains(strings.ToLower(key), "email") || strings.Contains(s, "@") {
		return MaskEmail(s)
	}
	return MaskString(s)
}

// MaskEmail keeps the first character of the local part and of the domain,
// plus the top-level domain: user@example.com -> u***@e***.com.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return MaskString(email)
	}

	tld := ""
	name := domain
	if i := strings.LastIndex(domain, "."); i > 0 {
		name, tld = domain[:i], domain[i:]
	}

	return firstRune(local) + "***@" + firstRune(name) + "***" + tld
}

// MaskString keeps the first and last two characters.
func MaskString(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}

func firstRune(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}

// LogSecurityEvent records a security relevant event with masked details.
func LogSecurityEvent(ctx context.Context, event string, details map[string]interface{}) {
	logger.FromCtx(ctx).Warn("security event",
		zap.String("event", event),
		zap.Any("details", MaskSensitiveData(details)),
	)
}
