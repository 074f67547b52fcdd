package signer

import (
	"errors"
	"fmt"
)

// Fault codes are hierarchical identifiers: the "Signer" authority prefix
// followed by a dot-separated subcode. The lifecycle orchestrator translates
// the subcodes below into typed domain errors; any other code passes through
// to the caller unchanged.
const (
	// FaultPrefix is the authority prefix on every fault raised by a signer.
	FaultPrefix = "Signer"

	subCertExists    = "CertExists"
	subIncorrectCert = "IncorrectCertificate"
	subWrongCertUse  = "WrongCertUsage"
	subCsrNotFound   = "CsrNotFound"
	subKeyNotFound   = "KeyNotFound"
	subCertNotFound  = "CertNotFound"
	subTokenNotFound = "TokenNotFound"
)

// Known fault codes.
var (
	CodeCertExists    = FaultCode(subCertExists)
	CodeIncorrectCert = FaultCode(subIncorrectCert)
	CodeWrongCertUse  = FaultCode(subWrongCertUse)
	CodeCsrNotFound   = FaultCode(subCsrNotFound)
	CodeKeyNotFound   = FaultCode(subKeyNotFound)
	CodeCertNotFound  = FaultCode(subCertNotFound)
	CodeTokenNotFound = FaultCode(subTokenNotFound)
)

// FaultCode builds a full fault code from a subcode.
func FaultCode(subcode string) string {
	return FaultPrefix + "." + subcode
}

// Fault is a coded failure reported by a signing subsystem.
type Fault struct {
	Code   string
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return f.Code
	}
	return f.Code + ": " + f.Detail
}

// Faultf constructs a Fault with a formatted detail message.
func Faultf(code, format string, args ...any) *Fault {
	return &Fault{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// IsFaultCode reports whether err is (or wraps) a Fault with the given code.
func IsFaultCode(err error, code string) bool {
	var f *Fault
	return errors.As(err, &f) && f.Code == code
}
