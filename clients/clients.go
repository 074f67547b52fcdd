// Package clients defines the registry of clients (members and their
// subsystems) known to this server, consumed by the lifecycle orchestrator
// to validate certificate ownership.
package clients

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned when an encoded client ID cannot be parsed.
var ErrInvalidID = errors.New("invalid client id")

// ID identifies a client: a member (instance/class/code) or one of its
// subsystems (instance/class/code/subsystem). The zero value is "no client",
// used e.g. for authentication certificates which have no owner.
type ID struct {
	Instance  string
	Class     string
	Code      string
	Subsystem string
}

// NewMember returns a member-level ID.
func NewMember(instance, class, code string) ID {
	return ID{Instance: instance, Class: class, Code: code}
}

// NewSubsystem returns a subsystem-level ID.
func NewSubsystem(instance, class, code, subsystem string) ID {
	return ID{Instance: instance, Class: class, Code: code, Subsystem: subsystem}
}

// IsZero reports whether the ID is the "no client" zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// IsSubsystem reports whether the ID identifies a subsystem.
func (id ID) IsSubsystem() bool {
	return id.Subsystem != ""
}

// Member returns the member-level ID, stripping any subsystem part.
func (id ID) Member() ID {
	return ID{Instance: id.Instance, Class: id.Class, Code: id.Code}
}

// String renders the ID as instance/class/code[/subsystem].
func (id ID) String() string {
	if id.Subsystem != "" {
		return fmt.Sprintf("%s/%s/%s/%s", id.Instance, id.Class, id.Code, id.Subsystem)
	}
	return fmt.Sprintf("%s/%s/%s", id.Instance, id.Class, id.Code)
}

// ParseID parses the String encoding back into an ID.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 3:
		return NewMember(parts[0], parts[1], parts[2]), nil
	case 4:
		return NewSubsystem(parts[0], parts[1], parts[2], parts[3]), nil
	}
	return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
}

// Registry is the persistent store of clients configured on this server.
type Registry interface {
	// IsLocalMember reports whether the member-level id is locally known,
	// either directly or through one of its registered subsystems.
	IsLocalMember(id ID) (bool, error)

	// Exists reports whether the exact id is registered. When
	// includeSubsystems is true a member id also matches if any of its
	// subsystems is registered.
	Exists(id ID, includeSubsystems bool) (bool, error)

	// Add registers a client.
	Add(id ID) error

	// List returns all registered client IDs.
	List() ([]ID, error)
}
