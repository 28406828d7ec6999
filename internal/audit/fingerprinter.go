package audit

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Fingerprint identifies a token in audit logs without storing it.
// Only the signature segment of a compact JWT is hashed; anything else is hashed whole.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	data := token
	if idx := strings.LastIndexByte(token, '.'); idx >= 0 && idx < len(token)-1 {
		data = token[idx+1:]
	}
	hash := sha256.Sum256([]byte(data))
	return base64.RawURLEncoding.EncodeToString(hash[:12])
}
