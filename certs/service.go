// Package certs orchestrates the lifecycle of certificates and certificate
// signing requests held on security tokens. It mediates between the local
// configuration (client registry, global configuration, approved CA
// profiles) and the remote signing subsystem that physically owns keys and
// certificates, gating every mutation on the currently possible actions and
// the caller's authority.
//
// Each operation is an independent unit of work: token and key state is
// resolved fresh for every authorization check, and snapshots are never
// reused across calls. The window between resolving state and issuing the
// mutating remote call is accepted: the signing subsystem is the final
// arbiter and rejects conflicting concurrent mutations with its own faults,
// which this layer translates rather than prevents.
package certs

import (
	"context"
	"fmt"

	"github.com/jmcleod/tokencert/actions"
	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/globalconf"
	"github.com/jmcleod/tokencert/internal/util"
	"github.com/jmcleod/tokencert/management"
	"github.com/jmcleod/tokencert/signer"
)

// Collaborators are the external dependencies of the orchestrator.
type Collaborators struct {
	// Signer is the remote signing subsystem. Required.
	Signer signer.Client
	// Clients is the registry of locally configured clients. Required.
	Clients clients.Registry
	// GlobalConf provides shared configuration state. Required.
	GlobalConf globalconf.Conf
	// Authorities resolves approved CA profiles. Required.
	Authorities authorities.Service
	// Management delivers registration requests to the central authority.
	// Required for register/unregister operations.
	Management management.Channel
	// Rules computes possible actions. Defaults to actions.DefaultEngine.
	Rules actions.RuleEngine
	// Permissions evaluates caller authority. Defaults to AllowAll.
	Permissions Permissions
}

// Service is the certificate and CSR lifecycle orchestrator.
type Service struct {
	signer      signer.Client
	clients     clients.Registry
	globalConf  globalconf.Conf
	authorities authorities.Service
	management  management.Channel
	rules       actions.RuleEngine
	perms       Permissions
}

// NewService returns a Service using the given collaborators.
func NewService(c Collaborators) *Service {
	if c.Rules == nil {
		c.Rules = actions.DefaultEngine{}
	}
	if c.Permissions == nil {
		c.Permissions = AllowAll{}
	}
	return &Service{
		signer:      c.Signer,
		clients:     c.Clients,
		globalConf:  c.GlobalConf,
		authorities: c.Authorities,
		management:  c.Management,
		rules:       c.Rules,
		perms:       c.Permissions,
	}
}

// GetCertificateInfo resolves a certificate by its hash. The hash is
// lowercased before lookup; hashes compare case-insensitively.
func (s *Service) GetCertificateInfo(ctx context.Context, hash string) (signer.Certificate, error) {
	hash = util.NormalizeCertHash(hash)
	cert, err := s.signer.CertificateForHash(ctx, hash)
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return signer.Certificate{}, fmt.Errorf("%w: certificate with hash %s", ErrCertificateNotFound, hash)
		}
		return signer.Certificate{}, err
	}
	return cert, nil
}

// KeyIDForCertificateHash returns the id of the key holding the certificate
// with the given hash.
func (s *Service) KeyIDForCertificateHash(ctx context.Context, hash string) (string, error) {
	hash = util.NormalizeCertHash(hash)
	keyID, err := s.signer.KeyIDForCertHash(ctx, hash)
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return "", fmt.Errorf("%w: certificate with hash %s", ErrCertificateNotFound, hash)
		}
		return "", err
	}
	return keyID, nil
}

// GetPossibleActionsForCertificate returns the actions currently legal for
// the certificate with the given hash. Read-only; never mutates state.
func (s *Service) GetPossibleActionsForCertificate(ctx context.Context, hash string) (actions.Set, error) {
	return s.possibleCertificateActions(ctx, hash, nil)
}

// GetPossibleActionsForCsr returns the actions currently legal for the CSR
// with the given id. Read-only; never mutates state.
func (s *Service) GetPossibleActionsForCsr(ctx context.Context, csrID string) (actions.Set, error) {
	token, key, err := s.resolveTokenAndKeyForCsr(ctx, csrID)
	if err != nil {
		return nil, err
	}
	csr, ok := key.Csr(csrID)
	if !ok {
		return nil, fmt.Errorf("%w: csr with id %s", ErrCsrNotFound, csrID)
	}
	return s.rules.PossibleCsrActions(token, key, csr), nil
}

// possibleCertificateActions computes the possible actions for a certificate
// by hash. A non-nil preResolved certificate is used as-is (it came from a
// lookup moments earlier in the same operation); token and key state is
// always resolved fresh so the authorization check stays honest.
//
// A certificate's owning key must resolve whenever the certificate itself
// resolved, so a key-not-found here is an internal inconsistency, not a
// caller-facing condition.
func (s *Service) possibleCertificateActions(ctx context.Context, hash string, preResolved *signer.Certificate) (actions.Set, error) {
	var cert signer.Certificate
	if preResolved != nil {
		cert = *preResolved
	} else {
		var err error
		cert, err = s.GetCertificateInfo(ctx, hash)
		if err != nil {
			return nil, err
		}
	}

	token, key, err := s.signer.TokenAndKeyForCertHash(ctx, util.NormalizeCertHash(hash))
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return nil, fmt.Errorf("%w: certificate with hash %s", ErrCertificateNotFound, hash)
		}
		if signer.IsFaultCode(err, signer.CodeKeyNotFound) {
			return nil, fmt.Errorf("%w: key for certificate %s did not resolve: %v", ErrInternal, hash, err)
		}
		return nil, err
	}
	return s.rules.PossibleCertificateActions(token, key, cert), nil
}

// resolveTokenAndKey resolves the token holding keyID and the key snapshot
// within it.
func (s *Service) resolveTokenAndKey(ctx context.Context, keyID string) (signer.Token, signer.Key, error) {
	token, err := s.signer.TokenForKey(ctx, keyID)
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeKeyNotFound) || signer.IsFaultCode(err, signer.CodeTokenNotFound) {
			return signer.Token{}, signer.Key{}, fmt.Errorf("%w: key with id %s", ErrKeyNotFound, keyID)
		}
		return signer.Token{}, signer.Key{}, err
	}
	key, ok := token.Key(keyID)
	if !ok {
		return signer.Token{}, signer.Key{}, fmt.Errorf("%w: key with id %s", ErrKeyNotFound, keyID)
	}
	return token, key, nil
}

// resolveTokenAndKeyForCsr resolves the token and key holding the CSR with
// the given id.
func (s *Service) resolveTokenAndKeyForCsr(ctx context.Context, csrID string) (signer.Token, signer.Key, error) {
	token, key, err := s.signer.TokenAndKeyForCsr(ctx, csrID)
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeCsrNotFound) {
			return signer.Token{}, signer.Key{}, fmt.Errorf("%w: csr with id %s", ErrCsrNotFound, csrID)
		}
		if signer.IsFaultCode(err, signer.CodeKeyNotFound) {
			return signer.Token{}, signer.Key{}, fmt.Errorf("%w: key for csr %s did not resolve: %v", ErrInternal, csrID, err)
		}
		return signer.Token{}, signer.Key{}, err
	}
	return token, key, nil
}
