package certs

import (
	"context"
	"fmt"

	"github.com/jmcleod/tokencert/actions"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/internal/util"
	"github.com/jmcleod/tokencert/signer"
)

// ImportCertificate imports a certificate from raw bytes. Use
// ImportCertificateFromToken for a certificate that already exists on a
// token. A signing certificate's owner is derived from its subject and must
// be a locally registered client; the certificate is stored as registered.
// An authentication certificate is stored as saved, pending registration.
func (s *Service) ImportCertificate(ctx context.Context, certBytes []byte) (signer.Certificate, error) {
	return s.importCertificate(ctx, certBytes, false)
}

// ImportCertificateFromToken imports a certificate found on a token (e.g. an
// HSM) into the server configuration so it can be used for signing.
func (s *Service) ImportCertificateFromToken(ctx context.Context, hash string) (signer.Certificate, error) {
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return signer.Certificate{}, err
	}
	possible, err := s.possibleCertificateActions(ctx, hash, &cert)
	if err != nil {
		return signer.Certificate{}, err
	}
	if err := actions.Require(actions.ImportFromToken, possible); err != nil {
		return signer.Certificate{}, err
	}
	return s.importCertificate(ctx, cert.Bytes, true)
}

func (s *Service) importCertificate(ctx context.Context, certBytes []byte, fromToken bool) (signer.Certificate, error) {
	if err := s.globalConf.VerifyValidity(); err != nil {
		return signer.Certificate{}, err
	}
	cert, err := parseCertificate(certBytes)
	if err != nil {
		return signer.Certificate{}, err
	}

	var status signer.CertStatus
	var owner clients.ID
	if classifyParsed(cert) == signer.UsageAuthentication {
		if err := s.perms.VerifyAuthority(ctx, PermImportAuthCert); err != nil {
			return signer.Certificate{}, err
		}
		if fromToken {
			return signer.Certificate{}, fmt.Errorf(
				"%w: auth cert cannot be imported from a token", ErrAuthCertNotSupported)
		}
		status = signer.StatusSaved
	} else {
		if err := s.perms.VerifyAuthority(ctx, PermImportSignCert); err != nil {
			return signer.Certificate{}, err
		}
		instance := s.globalConf.InstanceIdentifier()
		owner, err = s.globalConf.SubjectClientID(instance, cert)
		if err != nil {
			return signer.Certificate{}, fmt.Errorf(
				"%w: cannot read member identifier from signing certificate: %v", ErrInvalidCertificate, err)
		}
		exists, err := s.clients.Exists(owner, true)
		if err != nil {
			return signer.Certificate{}, err
		}
		if !exists {
			return signer.Certificate{}, fmt.Errorf("%w: client %s", ErrClientNotFound, owner)
		}
		status = signer.StatusRegistered
	}

	if err := s.signer.ImportCert(ctx, cert.Raw, status, owner); err != nil {
		return signer.Certificate{}, translateFault(err)
	}
	// Re-read by the canonical hash so the caller gets stored state, not an
	// echo of the input.
	return s.GetCertificateInfo(ctx, util.CertHash(cert.Raw))
}

// ActivateCertificate activates the certificate with the given hash.
func (s *Service) ActivateCertificate(ctx context.Context, hash string) error {
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return err
	}
	if err := s.verifyActivateDisableAuthority(ctx, cert.Bytes); err != nil {
		return err
	}
	if err := s.signer.ActivateCert(ctx, cert.ID); err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return fmt.Errorf("%w: certificate with id %s", ErrCertificateNotFound, cert.ID)
		}
		return err
	}
	return nil
}

// DeactivateCertificate deactivates the certificate with the given hash.
func (s *Service) DeactivateCertificate(ctx context.Context, hash string) error {
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return err
	}
	if err := s.verifyActivateDisableAuthority(ctx, cert.Bytes); err != nil {
		return err
	}
	if err := s.signer.DeactivateCert(ctx, cert.ID); err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return fmt.Errorf("%w: certificate with id %s", ErrCertificateNotFound, cert.ID)
		}
		return err
	}
	return nil
}

// verifyActivateDisableAuthority picks the activation authority from the
// certificate's classified usage.
func (s *Service) verifyActivateDisableAuthority(ctx context.Context, certBytes []byte) error {
	usage, err := ClassifyCertificate(certBytes)
	if err != nil {
		return err
	}
	if usage == signer.UsageAuthentication {
		return s.perms.VerifyAuthority(ctx, PermActivateDisableAuthCert)
	}
	return s.perms.VerifyAuthority(ctx, PermActivateDisableSignCert)
}

// RegisterAuthCert sends a registration request for the authentication
// certificate to the central authority and, only after the channel accepted
// it, advances the certificate status to registration-in-progress. A failed
// dispatch leaves the status untouched.
func (s *Service) RegisterAuthCert(ctx context.Context, hash, serverAddress string) error {
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return err
	}
	if err := s.verifyAuthCert(cert); err != nil {
		return err
	}
	if err := s.requireCertificateAction(ctx, actions.Register, hash, cert); err != nil {
		return err
	}
	if err := s.management.SendAuthCertRegistration(ctx, serverAddress, cert.Bytes); err != nil {
		return err
	}
	if err := s.signer.SetCertStatus(ctx, cert.ID, signer.StatusRegInProg); err != nil {
		return translateFault(err)
	}
	return nil
}

// UnregisterAuthCert sends a deletion request for the authentication
// certificate to the central authority and, only after the channel accepted
// it, advances the certificate status to deletion-in-progress.
func (s *Service) UnregisterAuthCert(ctx context.Context, hash string) error {
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return err
	}
	if err := s.verifyAuthCert(cert); err != nil {
		return err
	}
	if err := s.requireCertificateAction(ctx, actions.Unregister, hash, cert); err != nil {
		return err
	}
	if err := s.management.SendAuthCertDeletion(ctx, cert.Bytes); err != nil {
		return err
	}
	if err := s.signer.SetCertStatus(ctx, cert.ID, signer.StatusDelInProg); err != nil {
		return translateFault(err)
	}
	return nil
}

// verifyAuthCert rejects certificates that do not classify as authentication.
func (s *Service) verifyAuthCert(cert signer.Certificate) error {
	usage, err := ClassifyCertificate(cert.Bytes)
	if err != nil {
		return err
	}
	if usage != signer.UsageAuthentication {
		return fmt.Errorf("%w: certificate %s is not an auth cert", ErrSignCertNotSupported, cert.ID)
	}
	return nil
}

// requireCertificateAction re-resolves token and key state and verifies the
// action is currently possible for the certificate.
func (s *Service) requireCertificateAction(ctx context.Context, action actions.Action, hash string, cert signer.Certificate) error {
	possible, err := s.possibleCertificateActions(ctx, hash, &cert)
	if err != nil {
		return err
	}
	return actions.Require(action, possible)
}

// DeleteCertificate deletes the certificate with the given hash. The delete
// authority is selected by the owning key's usage, not the certificate's
// classified usage: the key stays authoritative even when the certificate
// content is no longer readable.
func (s *Service) DeleteCertificate(ctx context.Context, hash string) error {
	hash = util.NormalizeCertHash(hash)
	cert, err := s.GetCertificateInfo(ctx, hash)
	if err != nil {
		return err
	}
	token, key, err := s.signer.TokenAndKeyForCertHash(ctx, hash)
	if err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			return fmt.Errorf("%w: certificate with hash %s", ErrCertificateNotFound, hash)
		}
		if signer.IsFaultCode(err, signer.CodeKeyNotFound) {
			return fmt.Errorf("%w: key with certificate %s", ErrKeyNotFound, hash)
		}
		return err
	}

	possible := s.rules.PossibleCertificateActions(token, key, cert)
	if err := actions.Require(actions.Delete, possible); err != nil {
		return err
	}
	if err := s.verifyDeleteAuthority(ctx, key); err != nil {
		return err
	}

	if err := s.signer.DeleteCert(ctx, cert.ID); err != nil {
		if signer.IsFaultCode(err, signer.CodeCertNotFound) {
			// Carry the id that resolved before the failed call for diagnostics.
			return fmt.Errorf("%w: certificate with id %s", ErrCertificateNotFound, cert.ID)
		}
		return err
	}
	return nil
}
