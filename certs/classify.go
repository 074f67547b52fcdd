package certs

import (
	"crypto/x509"
	"fmt"

	"github.com/jmcleod/tokencert/signer"
)

// ClassifyCertificate derives a certificate's usage category from its DER
// bytes. Classification is never stored; re-deriving it from content
// guarantees it cannot drift from what the certificate actually says.
func ClassifyCertificate(der []byte) (signer.KeyUsage, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return signer.UsageUnset, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return classifyParsed(cert), nil
}

// classifyParsed classifies an already-parsed certificate. A certificate
// whose extended key usage includes TLS client authentication is an
// authentication certificate; everything else is a signing certificate.
func classifyParsed(cert *x509.Certificate) signer.KeyUsage {
	for _, eku := range cert.ExtKeyUsage {
		if eku == x509.ExtKeyUsageClientAuth {
			return signer.UsageAuthentication
		}
	}
	return signer.UsageSigning
}

// parseCertificate decodes DER bytes, mapping decode failures to
// ErrInvalidCertificate.
func parseCertificate(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert bytes to certificate: %v", ErrInvalidCertificate, err)
	}
	return cert, nil
}
