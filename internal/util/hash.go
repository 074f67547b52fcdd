package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CertHash returns the canonical hash of DER-encoded certificate bytes:
// SHA-256, lowercase hex. Every certificate lookup in the system keys off
// this value.
func CertHash(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// NormalizeCertHash canonicalizes a caller-supplied certificate hash.
// Hashes are compared case-insensitively, so lookups lowercase first.
func NormalizeCertHash(hash string) string {
	return strings.ToLower(hash)
}
