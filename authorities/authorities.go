// Package authorities resolves certification authority profiles: which
// subject distinguished-name fields a CA expects for a given key usage, and
// their defaults for a given owner.
package authorities

import (
	"errors"

	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/signer"
)

var (
	// ErrAuthorityNotFound is returned when no approved certification
	// authority matches the requested name.
	ErrAuthorityNotFound = errors.New("certification authority not found")

	// ErrProfileInstantiation is returned when a CA's profile exists but
	// cannot be instantiated for the requested usage and owner.
	ErrProfileInstantiation = errors.New("cannot instantiate certificate profile")
)

// DnField describes one subject distinguished-name field in a profile.
type DnField struct {
	// ID is the short DN attribute name ("C", "O", "CN", "serialNumber").
	ID string
	// Label is a human-readable description for UI rendering.
	Label string
	// Default is the pre-filled value; for read-only fields it is the value.
	Default string
	// Required fields must end up non-empty after defaulting.
	Required bool
	// ReadOnly fields cannot be overridden by the caller.
	ReadOnly bool
}

// Profile is the ordered list of subject DN fields a CA expects.
type Profile struct {
	SubjectFields []DnField
}

// Service resolves certificate profiles from approved CAs.
type Service interface {
	// Profile returns the subject DN profile the named CA expects for the
	// given key usage and certificate owner. Fails with ErrAuthorityNotFound
	// for an unknown CA name and ErrProfileInstantiation when the profile
	// cannot be built for the owner.
	Profile(caName string, usage signer.KeyUsage, owner clients.ID) (Profile, error)
}
