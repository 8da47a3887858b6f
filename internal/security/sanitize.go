package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// SanitizeString escapes the five HTML-significant characters. It is not a
// general purpose sanitizer.
func SanitizeString(s string) string {
	return htmlEscaper.Replace(s)
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns a crypto-random alphanumeric string.
func GenerateSecureID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	max := big.NewInt(int64(len(idAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate secure id: %w", err)
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String(), nil
}
