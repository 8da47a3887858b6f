package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StripeSignatureTolerance bounds the age of a signed card-processor webhook.
const StripeSignatureTolerance = 300 * time.Second

var (
	ErrMissingSignature    = errors.New("missing signature")
	ErrMalformedSignature  = errors.New("malformed signature header")
	ErrSignatureMismatch   = errors.New("signature mismatch")
	ErrTimestampOutOfRange = errors.New("signature timestamp outside tolerance")
)

// StripeSignatureHeader is the parsed form of `t=...,v1=...,v0=...`.
type StripeSignatureHeader struct {
	Timestamp  int64
	Signatures []string
}

// ParseStripeSignatureHeader splits the comma separated key=value list.
// Unknown keys are ignored; v1 and v0 entries are collected in order.
func ParseStripeSignatureHeader(header string) (*StripeSignatureHeader, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrMissingSignature
	}

	parsed := &StripeSignatureHeader{}
	hasTimestamp := false

	for _, pair := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid timestamp", ErrMalformedSignature)
			}
			parsed.Timestamp = ts
			hasTimestamp = true
		case "v1", "v0":
			if value != "" {
				parsed.Signatures = append(parsed.Signatures, value)
			}
		}
	}

	if !hasTimestamp {
		return nil, fmt.Errorf("%w: no timestamp", ErrMalformedSignature)
	}
	if len(parsed.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrMalformedSignature)
	}
	return parsed, nil
}

// VerifyStripeSignature checks a card-processor style header against
// HMAC-SHA256("{t}.{payload}"). The timestamp window is enforced before any
// signature comparison; any one matching signature is accepted.
func VerifyStripeSignature(payload []byte, header, secret string, now time.Time) error {
	parsed, err := ParseStripeSignatureHeader(header)
	if err != nil {
		return err
	}

	signedAt := time.Unix(parsed.Timestamp, 0)
	if diff := now.Sub(signedAt); diff > StripeSignatureTolerance || diff < -StripeSignatureTolerance {
		return ErrTimestampOutOfRange
	}

	expected := computeHMAC(stripeSignedPayload(parsed.Timestamp, payload), secret)
	for _, sig := range parsed.Signatures {
		if equalHex(expected, sig) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// SignStripePayload produces a header value VerifyStripeSignature accepts.
func SignStripePayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := computeHMAC(stripeSignedPayload(ts, payload), secret)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac))
}

// VerifyHexSignature checks a hex encoded HMAC-SHA256 of the raw payload.
func VerifyHexSignature(payload []byte, signature, secret string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrMissingSignature
	}
	if !equalHex(computeHMAC(payload, secret), strings.TrimSpace(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyBase64Signature checks a base64 encoded HMAC-SHA256 of the raw payload.
func VerifyBase64Signature(payload []byte, signature, secret string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrMissingSignature
	}
	given, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrSignatureMismatch
	}
	if !hmac.Equal(computeHMAC(payload, secret), given) {
		return ErrSignatureMismatch
	}
	return nil
}

func SignHex(payload []byte, secret string) string {
	return hex.EncodeToString(computeHMAC(payload, secret))
}

func SignBase64(payload []byte, secret string) string {
	return base64.StdEncoding.EncodeToString(computeHMAC(payload, secret))
}

func stripeSignedPayload(ts int64, payload []byte) []byte {
	prefix := strconv.FormatInt(ts, 10) + "."
	signed := make([]byte, 0, len(prefix)+len(payload))
	signed = append(signed, prefix...)
	return append(signed, payload...)
}

func computeHMAC(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// equalHex decodes the candidate and compares in constant time. Bad hex
// and length mismatches are plain failures.
func equalHex(expected []byte, candidate string) bool {
	given, err := hex.DecodeString(candidate)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}
