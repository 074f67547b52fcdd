package certs

import "context"

// Permission names checked by the orchestrator. Beyond the possible-action
// gate, every mutating operation requires the caller to hold the matching
// authority for the certificate's (or key's) usage category.
const (
	PermGenerateAuthCertReq     = "generate-auth-cert-req"
	PermGenerateSignCertReq     = "generate-sign-cert-req"
	PermImportAuthCert          = "import-auth-cert"
	PermImportSignCert          = "import-sign-cert"
	PermActivateDisableAuthCert = "activate-disable-auth-cert"
	PermActivateDisableSignCert = "activate-disable-sign-cert"
	PermDeleteAuthCert          = "delete-auth-cert"
	PermDeleteSignCert          = "delete-sign-cert"
)

// Permissions evaluates whether the calling principal holds a named
// authority. Implementations typically read the principal from the context;
// tests substitute fakes for deterministic behavior.
type Permissions interface {
	// VerifyAuthority fails with ErrAccessDenied when the caller does not
	// hold the permission.
	VerifyAuthority(ctx context.Context, permission string) error
}

// AllowAll grants every permission. Intended for single-operator
// deployments where access control happens upstream.
type AllowAll struct{}

var _ Permissions = AllowAll{}

func (AllowAll) VerifyAuthority(ctx context.Context, permission string) error {
	return nil
}
