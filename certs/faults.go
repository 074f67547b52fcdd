package certs

import (
	"errors"
	"fmt"

	"github.com/jmcleod/tokencert/signer"
)

// translateFault maps known signer fault codes to typed domain errors.
// Unrecognized faults (and non-fault errors) pass through unchanged:
// unmodeled failures stay transparent to the caller and are never downgraded
// to ErrInternal.
func translateFault(err error) error {
	var f *signer.Fault
	if !errors.As(err, &f) {
		return err
	}
	switch f.Code {
	case signer.CodeCertExists:
		return fmt.Errorf("%w: %s", ErrCertificateExists, f.Detail)
	case signer.CodeIncorrectCert:
		return fmt.Errorf("%w: %s", ErrInvalidCertificate, f.Detail)
	case signer.CodeWrongCertUse:
		return fmt.Errorf("%w: %s", ErrWrongCertificateUsage, f.Detail)
	case signer.CodeCsrNotFound:
		return fmt.Errorf("%w: %s", ErrCsrNotFound, f.Detail)
	case signer.CodeKeyNotFound:
		return fmt.Errorf("%w: %s", ErrKeyNotFound, f.Detail)
	case signer.CodeCertNotFound:
		return fmt.Errorf("%w: %s", ErrCertificateNotFound, f.Detail)
	}
	return err
}
