package certs

import (
	"errors"

	"github.com/jmcleod/tokencert/actions"
)

var (
	// ErrClientNotFound is returned when a certificate owner (or a
	// subsystem under it) is not registered on this server.
	ErrClientNotFound = errors.New("client not found")

	// ErrKeyNotFound is returned when the referenced key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCertificateNotFound is returned when no certificate matches the
	// given hash or id.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrCsrNotFound is returned when no certificate request matches the
	// given id.
	ErrCsrNotFound = errors.New("csr not found")

	// ErrWrongKeyUsage is returned when a request implies a usage contrary
	// to the key's pinned usage. Usage is never silently reassigned.
	ErrWrongKeyUsage = errors.New("wrong key usage")

	// ErrWrongCertificateUsage is returned when a certificate's usage
	// content is incompatible with the operation (e.g. both auth and sign,
	// or neither).
	ErrWrongCertificateUsage = errors.New("wrong certificate usage")

	// ErrInvalidCertificate is returned when bytes do not decode as a
	// well-formed certificate. Usually a wrong file type.
	ErrInvalidCertificate = errors.New("invalid certificate")

	// ErrInvalidDnParameter is returned when submitted subject fields are
	// missing a required value or contain a field the profile rejects.
	ErrInvalidDnParameter = errors.New("invalid subject field")

	// ErrCertificateExists is returned when importing a certificate that is
	// already stored.
	ErrCertificateExists = errors.New("certificate already exists")

	// ErrAuthCertNotSupported is returned when an authentication
	// certificate is imported from a token; auth certs may only be
	// imported from bytes.
	ErrAuthCertNotSupported = errors.New("authentication certificate not supported")

	// ErrSignCertNotSupported is returned when a signing certificate is
	// passed to an auth-only operation (register/unregister).
	ErrSignCertNotSupported = errors.New("sign certificate not supported")

	// ErrAccessDenied is returned by the permission evaluator when the
	// caller lacks the required authority.
	ErrAccessDenied = errors.New("access denied")

	// ErrInternal marks an unexpected inconsistency, a bug rather than a
	// user-facing condition. Details are deliberately opaque to callers.
	ErrInternal = errors.New("internal error")
)

// ErrActionNotPossible is returned when the current token/key/certificate
// state does not permit the attempted action.
var ErrActionNotPossible = actions.ErrActionNotPossible
