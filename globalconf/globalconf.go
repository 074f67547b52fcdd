// Package globalconf exposes the shared global configuration that the
// lifecycle orchestrator depends on: configuration validity, the instance
// identifier, and the mapping from a signing certificate's subject to the
// owning client.
package globalconf

import (
	"crypto/x509"
	"errors"

	"github.com/jmcleod/tokencert/clients"
)

// ErrOutdated is returned when the global configuration is no longer valid.
// Operations that depend on shared state (certificate import, management
// requests) refuse to run against an outdated configuration.
var ErrOutdated = errors.New("global configuration is outdated")

// Conf is the global configuration contract.
type Conf interface {
	// VerifyValidity fails with ErrOutdated when the configuration has
	// expired and must be refreshed before state-changing operations.
	VerifyValidity() error

	// InstanceIdentifier returns the identifier of the instance this
	// server belongs to.
	InstanceIdentifier() string

	// SubjectClientID derives the owning client of a signing certificate
	// from its subject, scoped to the given instance.
	SubjectClientID(instance string, cert *x509.Certificate) (clients.ID, error)
}
