package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the gateway MAC over callback fields: every field except
// the signature itself, sorted lexicographically by key, joined as
// key=value&key=value, with the shared secret appended, HMAC-SHA-256 keyed
// by the same secret, hex encoded.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(fields[key])
	}
	builder.WriteString(secret)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(builder.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the supplied signature field against a recomputed MAC.
// The comparison is constant time; hex case does not matter.
func Verify(fields map[string]string, secret string) bool {
	supplied := strings.ToLower(fields["signature"])
	if supplied == "" {
		return false
	}
	expected := Sign(fields, secret)
	return hmac.Equal([]byte(expected), []byte(supplied))
}
