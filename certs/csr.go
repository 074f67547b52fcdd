package certs

import (
	"context"
	"fmt"

	"github.com/jmcleod/tokencert/actions"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/signer"
)

// GenerateCertRequest creates a new CSR under the key. For signing keys the
// owner (or a subsystem under it) must be a locally registered client. A key
// whose usage is already pinned rejects a request for the opposite usage.
func (s *Service) GenerateCertRequest(ctx context.Context, keyID string, owner clients.ID,
	usage signer.KeyUsage, caName string, subjectFields map[string]string,
	format signer.CsrFormat) (signer.GeneratedCertRequest, error) {

	token, key, err := s.resolveTokenAndKey(ctx, keyID)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}

	if usage == signer.UsageSigning {
		local, err := s.clients.IsLocalMember(owner)
		if err != nil {
			return signer.GeneratedCertRequest{}, err
		}
		if !local {
			return signer.GeneratedCertRequest{}, fmt.Errorf(
				"%w: client with id %s, or subsystem for it, not found", ErrClientNotFound, owner)
		}
	}

	// Usage is pinned by the key's first CSR and never reassigned.
	if key.Usage != signer.UsageUnset && key.Usage != usage {
		return signer.GeneratedCertRequest{}, fmt.Errorf(
			"%w: key %s is for %s", ErrWrongKeyUsage, keyID, key.Usage)
	}

	if err := s.verifyGenerateAuthority(ctx, usage); err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	if err := s.requireGenerateCsr(token, key, usage); err != nil {
		return signer.GeneratedCertRequest{}, err
	}

	profile, err := s.authorities.Profile(caName, usage, owner)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	dnValues, err := processDnParameters(profile, subjectFields)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}

	return s.signer.GenerateCertRequest(ctx, keyID, owner, usage, subjectName(dnValues), format)
}

// RegenerateCertRequest re-derives the encoded bytes of an existing CSR.
// The stored CSR and its metadata are unchanged; only the returned bytes are
// freshly produced. Authority and possible-action checks reuse the generate
// values; there are no separate ones for regeneration.
func (s *Service) RegenerateCertRequest(ctx context.Context, keyID, csrID string,
	format signer.CsrFormat) (signer.GeneratedCertRequest, error) {

	token, key, err := s.resolveTokenAndKey(ctx, keyID)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	if _, ok := key.Csr(csrID); !ok {
		return signer.GeneratedCertRequest{}, fmt.Errorf("%w: csr with id %s", ErrCsrNotFound, csrID)
	}

	usage := signer.UsageAuthentication
	if key.ForSigning() {
		usage = signer.UsageSigning
	}
	if err := s.verifyGenerateAuthority(ctx, usage); err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	if err := s.requireGenerateCsr(token, key, usage); err != nil {
		return signer.GeneratedCertRequest{}, err
	}

	return s.signer.RegenerateCertRequest(ctx, csrID, format)
}

// DeleteCsr deletes the CSR with the given id.
func (s *Service) DeleteCsr(ctx context.Context, csrID string) error {
	token, key, err := s.resolveTokenAndKeyForCsr(ctx, csrID)
	if err != nil {
		return err
	}
	csr, ok := key.Csr(csrID)
	if !ok {
		return fmt.Errorf("%w: csr with id %s", ErrCsrNotFound, csrID)
	}

	// The key, not the CSR, decides which delete authority applies.
	if err := s.verifyDeleteAuthority(ctx, key); err != nil {
		return err
	}
	if err := actions.RequireCsrAction(s.rules, actions.Delete, token, key, csr); err != nil {
		return err
	}

	if err := s.signer.DeleteCertRequest(ctx, csrID); err != nil {
		if signer.IsFaultCode(err, signer.CodeCsrNotFound) {
			return fmt.Errorf("%w: csr with id %s", ErrCsrNotFound, csrID)
		}
		return err
	}
	return nil
}

func (s *Service) verifyGenerateAuthority(ctx context.Context, usage signer.KeyUsage) error {
	if usage == signer.UsageSigning {
		return s.perms.VerifyAuthority(ctx, PermGenerateSignCertReq)
	}
	return s.perms.VerifyAuthority(ctx, PermGenerateAuthCertReq)
}

func (s *Service) requireGenerateCsr(token signer.Token, key signer.Key, usage signer.KeyUsage) error {
	action := actions.GenerateAuthCsr
	if usage == signer.UsageSigning {
		action = actions.GenerateSignCsr
	}
	return actions.RequireKeyAction(s.rules, action, token, key)
}

func (s *Service) verifyDeleteAuthority(ctx context.Context, key signer.Key) error {
	if key.ForSigning() {
		return s.perms.VerifyAuthority(ctx, PermDeleteSignCert)
	}
	return s.perms.VerifyAuthority(ctx, PermDeleteAuthCert)
}
