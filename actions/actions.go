// Package actions computes which lifecycle operations are currently legal
// for a token, key, certificate or certificate request. Possible actions are
// never stored; they are always a function of current state, recomputed for
// every authorization check.
package actions

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jmcleod/tokencert/signer"
)

// ErrActionNotPossible is returned when a required action is absent from the
// computed possible-action set.
var ErrActionNotPossible = errors.New("action not possible")

// Action is an enumerated lifecycle capability.
type Action string

const (
	GenerateAuthCsr Action = "generate_auth_csr"
	GenerateSignCsr Action = "generate_sign_csr"
	Activate        Action = "activate"
	Disable         Action = "disable"
	ImportFromToken Action = "import_from_token"
	Register        Action = "register"
	Unregister      Action = "unregister"
	Delete          Action = "delete"
)

// Set is an unordered collection of possible actions.
type Set map[Action]struct{}

// NewSet returns a Set containing the given actions.
func NewSet(as ...Action) Set {
	s := make(Set, len(as))
	for _, a := range as {
		s.Add(a)
	}
	return s
}

func (s Set) Add(a Action)           { s[a] = struct{}{} }
func (s Set) Contains(a Action) bool { _, ok := s[a]; return ok }

// List returns the actions in deterministic (sorted) order.
func (s Set) List() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RuleEngine computes possible actions from token/key/certificate state. It
// is pure and deterministic given its inputs; implementations must not cache
// state across calls. The orchestrator consults it before every mutation.
type RuleEngine interface {
	// PossibleKeyActions returns the actions currently legal for a key.
	PossibleKeyActions(token signer.Token, key signer.Key) Set

	// PossibleCertificateActions returns the actions currently legal for a
	// certificate stored under the key.
	PossibleCertificateActions(token signer.Token, key signer.Key, cert signer.Certificate) Set

	// PossibleCsrActions returns the actions currently legal for the CSR
	// stored under the key. The default engine rules on token state only;
	// substituted policies may also consult the key and CSR.
	PossibleCsrActions(token signer.Token, key signer.Key, csr signer.Csr) Set
}

// Require fails with ErrActionNotPossible unless action is in the set. This
// is the single authorization gate for mutating operations; no operation
// bypasses it.
func Require(action Action, possible Set) error {
	if !possible.Contains(action) {
		return fmt.Errorf("%w: %s", ErrActionNotPossible, action)
	}
	return nil
}

// RequireKeyAction verifies that action is possible for the key.
func RequireKeyAction(e RuleEngine, action Action, token signer.Token, key signer.Key) error {
	return Require(action, e.PossibleKeyActions(token, key))
}

// RequireCertificateAction verifies that action is possible for the certificate.
func RequireCertificateAction(e RuleEngine, action Action, token signer.Token, key signer.Key, cert signer.Certificate) error {
	return Require(action, e.PossibleCertificateActions(token, key, cert))
}

// RequireCsrAction verifies that action is possible for the CSR.
func RequireCsrAction(e RuleEngine, action Action, token signer.Token, key signer.Key, csr signer.Csr) error {
	return Require(action, e.PossibleCsrActions(token, key, csr))
}
