package actions

import (
	"github.com/jmcleod/tokencert/signer"
)

// DefaultEngine is the reference RuleEngine. Deployments with stricter
// policy substitute their own implementation; the orchestrator only depends
// on the RuleEngine interface.
type DefaultEngine struct{}

var _ RuleEngine = DefaultEngine{}

// tokenUsable reports whether mutating operations are currently possible on
// the token at all.
func tokenUsable(token signer.Token) bool {
	return token.Active && token.LoggedIn && !token.ReadOnly
}

func (DefaultEngine) PossibleKeyActions(token signer.Token, key signer.Key) Set {
	s := NewSet()
	if !tokenUsable(token) || !key.Available {
		return s
	}
	// A key's usage is pinned by its first CSR; an unset usage permits either.
	if key.Usage == signer.UsageUnset || key.Usage == signer.UsageAuthentication {
		s.Add(GenerateAuthCsr)
	}
	if key.Usage == signer.UsageUnset || key.Usage == signer.UsageSigning {
		s.Add(GenerateSignCsr)
	}
	return s
}

func (DefaultEngine) PossibleCertificateActions(token signer.Token, key signer.Key, cert signer.Certificate) Set {
	s := NewSet()
	if !token.Active {
		return s
	}
	if cert.Active {
		s.Add(Disable)
	} else {
		s.Add(Activate)
	}
	if token.LoggedIn && !cert.Saved {
		s.Add(ImportFromToken)
	}
	if key.Usage == signer.UsageAuthentication {
		switch cert.Status {
		case signer.StatusSaved:
			s.Add(Register)
		case signer.StatusRegistered, signer.StatusRegInProg:
			s.Add(Unregister)
		}
	}
	if deletable(token, key, cert) {
		s.Add(Delete)
	}
	return s
}

// deletable: sign certificates can be deleted whenever the token allows
// writes; auth certificates only before registration has been requested,
// since a registered certificate must be unregistered first.
func deletable(token signer.Token, key signer.Key, cert signer.Certificate) bool {
	if !tokenUsable(token) {
		return false
	}
	if key.Usage == signer.UsageAuthentication {
		return cert.Status == signer.StatusSaved
	}
	return true
}

// PossibleCsrActions rules on token state alone; the key and CSR snapshots
// are available for stricter substituted policies.
func (DefaultEngine) PossibleCsrActions(token signer.Token, key signer.Key, csr signer.Csr) Set {
	s := NewSet()
	if tokenUsable(token) {
		s.Add(Delete)
	}
	return s
}
