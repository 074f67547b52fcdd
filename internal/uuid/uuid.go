// Package uuid wraps UUID generation behind a single function so that the
// underlying library can be swapped without touching call sites.
package uuid

import "github.com/google/uuid"

// New returns a new random (v4) UUID string.
func New() string {
	return uuid.NewString()
}
