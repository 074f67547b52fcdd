package util

import (
	"golang.org/x/text/unicode/norm"
)

// NormalizeDnValue canonicalizes a user-submitted distinguished-name field
// value to NFC so that visually identical inputs compare equal regardless of
// the submitting client's Unicode composition.
func NormalizeDnValue(s string) string {
	return norm.NFC.String(s)
}

// CopyBytes returns an independent copy of src.
func CopyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
