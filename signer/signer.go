// Package signer defines the contract for the remote signing subsystem that
// physically owns tokens, keys, certificates and certificate requests. The
// lifecycle orchestrator consumes this interface; implementations may talk to
// an HSM daemon over RPC or, like the softtoken subpackage, keep everything
// in process.
//
// All returned values are immutable snapshots of remote state at the time of
// the call. Callers must not retain a snapshot across an authorization
// boundary; re-resolve instead.
package signer

import (
	"context"

	"github.com/jmcleod/tokencert/clients"
)

// KeyUsage is the purpose a key was created for. It is assigned by the first
// certificate request or certificate created under the key and never changes
// afterwards.
type KeyUsage string

const (
	// UsageUnset marks a fresh key that has no certificate requests or
	// certificates yet. The first request pins the usage.
	UsageUnset KeyUsage = ""

	// UsageSigning marks a key used for signing messages.
	UsageSigning KeyUsage = "signing"

	// UsageAuthentication marks a key used for transport authentication.
	UsageAuthentication KeyUsage = "authentication"
)

// CertStatus is the registration lifecycle state of a stored certificate.
type CertStatus string

const (
	// StatusSaved: imported but not registered with the central authority.
	// The default for sign certificates and freshly imported auth certificates.
	StatusSaved CertStatus = "saved"

	// StatusRegistered: confirmed active with the central authority.
	StatusRegistered CertStatus = "registered"

	// StatusRegInProg: registration request sent, awaiting confirmation.
	StatusRegInProg CertStatus = "registration in progress"

	// StatusDelInProg: deletion request sent, awaiting confirmation.
	StatusDelInProg CertStatus = "deletion in progress"
)

// CsrFormat is the encoding of generated certificate request bytes.
type CsrFormat string

const (
	FormatPEM CsrFormat = "pem"
	FormatDER CsrFormat = "der"
)

// Token is a snapshot of a cryptographic device or software keystore.
type Token struct {
	ID       string
	Name     string
	Active   bool
	LoggedIn bool
	ReadOnly bool
	Keys     []Key
}

// Key returns the key with the given id from the token snapshot.
func (t Token) Key(keyID string) (Key, bool) {
	for _, k := range t.Keys {
		if k.ID == keyID {
			return k, true
		}
	}
	return Key{}, false
}

// Key is a snapshot of an asymmetric keypair on a token.
type Key struct {
	ID        string
	Label     string
	Usage     KeyUsage
	Available bool
	Csrs      []Csr
	Certs     []Certificate
}

// ForSigning reports whether the key's pinned usage is signing.
func (k Key) ForSigning() bool {
	return k.Usage == UsageSigning
}

// Csr returns the certificate request with the given id from the key snapshot.
func (k Key) Csr(csrID string) (Csr, bool) {
	for _, c := range k.Csrs {
		if c.ID == csrID {
			return c, true
		}
	}
	return Csr{}, false
}

// Csr is a snapshot of a certificate signing request stored under a key.
// Regenerating a CSR produces fresh bytes but leaves this metadata unchanged.
type Csr struct {
	ID          string
	Owner       clients.ID
	SubjectName string
	Format      CsrFormat
}

// Certificate is a snapshot of a certificate stored under a key. The usage
// category is deliberately absent: it is always re-derived from Bytes so the
// classification cannot drift from the certificate's actual content.
type Certificate struct {
	ID     string
	Owner  clients.ID
	Bytes  []byte
	Hash   string // SHA-256 of Bytes, lowercase hex
	Status CertStatus
	Active bool
	Saved  bool // saved to the server configuration
}

// GeneratedCertRequest is the result of generating or regenerating a CSR.
type GeneratedCertRequest struct {
	CsrID    string
	KeyID    string
	Owner    clients.ID
	KeyUsage KeyUsage
	Format   CsrFormat
	Bytes    []byte
}

// Client is the remote signing subsystem. Every method may block on the
// remote side and may fail with a *Fault carrying an opaque coded fault.
type Client interface {
	// TokenForKey resolves the token that holds the key with the given id.
	TokenForKey(ctx context.Context, keyID string) (Token, error)

	// GenerateCertRequest creates a new CSR under the key and returns its
	// encoded bytes. The owner is only meaningful for signing keys.
	GenerateCertRequest(ctx context.Context, keyID string, owner clients.ID,
		usage KeyUsage, subjectName string, format CsrFormat) (GeneratedCertRequest, error)

	// RegenerateCertRequest re-derives request bytes for an existing CSR
	// without changing its stored metadata.
	RegenerateCertRequest(ctx context.Context, csrID string, format CsrFormat) (GeneratedCertRequest, error)

	// CertificateForHash resolves a certificate by its canonical hash.
	CertificateForHash(ctx context.Context, hash string) (Certificate, error)

	// ImportCert stores certificate bytes with the given initial status.
	// The owner is the zero value for authentication certificates.
	ImportCert(ctx context.Context, certBytes []byte, status CertStatus, owner clients.ID) error

	// SetCertStatus updates the lifecycle status of a stored certificate.
	SetCertStatus(ctx context.Context, certID string, status CertStatus) error

	ActivateCert(ctx context.Context, certID string) error
	DeactivateCert(ctx context.Context, certID string) error
	DeleteCert(ctx context.Context, certID string) error
	DeleteCertRequest(ctx context.Context, csrID string) error

	// KeyIDForCertHash resolves the id of the key holding the certificate.
	KeyIDForCertHash(ctx context.Context, hash string) (string, error)

	// TokenAndKeyForCertHash resolves the token and key holding the certificate.
	TokenAndKeyForCertHash(ctx context.Context, hash string) (Token, Key, error)

	// TokenAndKeyForCsr resolves the token and key holding the CSR.
	TokenAndKeyForCsr(ctx context.Context, csrID string) (Token, Key, error)
}
