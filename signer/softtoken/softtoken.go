// Package softtoken provides an in-process software token implementing
// signer.Client. Private keys are ECDSA P-256 held in memguard enclaves;
// the token PIN is argon2id-hashed. Intended for tests, demos and
// single-node deployments that have no HSM daemon to talk to.
package softtoken

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/internal/util"
	"github.com/jmcleod/tokencert/internal/uuid"
	"github.com/jmcleod/tokencert/signer"
)

// ErrInvalidPin is returned by Login when the PIN does not match.
var ErrInvalidPin = errors.New("invalid PIN")

// faultLoginRequired is raised for mutating calls against a logged-out
// token. Deliberately not one of the translated subcodes: callers see it
// pass through unchanged.
var faultLoginRequired = signer.FaultCode("LoginRequired")

// Token is a thread-safe software token.
type Token struct {
	mu       sync.Mutex
	id       string
	name     string
	active   bool
	loggedIn bool
	pin      util.PinHash
	keys     []*keyEntry
}

var _ signer.Client = (*Token)(nil)

type keyEntry struct {
	id    string
	label string
	usage signer.KeyUsage
	priv  *memguard.Enclave // SEC1 EC private key, DER
	pub   []byte            // PKIX public key, DER
	csrs  []*csrEntry
	certs []*certEntry
}

type csrEntry struct {
	id          string
	owner       clients.ID
	subjectName string
	format      signer.CsrFormat
}

type certEntry struct {
	id     string
	owner  clients.ID
	bytes  []byte
	hash   string
	status signer.CertStatus
	active bool
	saved  bool
}

// New creates an active software token protected by the given PIN.
func New(name, pin string) (*Token, error) {
	hash, err := util.HashPin(pin)
	if err != nil {
		return nil, fmt.Errorf("hashing token PIN: %w", err)
	}
	return &Token{
		id:     uuid.New(),
		name:   name,
		active: true,
		pin:    hash,
	}, nil
}

// ID returns the token identifier.
func (t *Token) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Login verifies the PIN and marks the token logged in.
func (t *Token) Login(pin string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !util.VerifyPin(pin, t.pin) {
		return ErrInvalidPin
	}
	t.loggedIn = true
	return nil
}

// Logout marks the token logged out.
func (t *Token) Logout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loggedIn = false
}

// GenerateKey creates a new ECDSA P-256 keypair on the token and returns
// its id. The key's usage is pinned by its first certificate request.
func (t *Token) GenerateKey(label string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedIn {
		return "", signer.Faultf(faultLoginRequired, "token %s is not logged in", t.id)
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generating ECDSA P-256 key: %w", err)
	}
	privDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return "", err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", err
	}
	k := &keyEntry{
		id:    uuid.New(),
		label: label,
		priv:  memguard.NewEnclave(privDER), // NewEnclave wipes privDER
		pub:   pubDER,
	}
	t.keys = append(t.keys, k)
	return k.id, nil
}

// StoreCertificate places a certificate on the token without saving it to
// the server configuration, as if it had been written there by an external
// CA tool. The certificate becomes importable via import-from-token.
func (t *Token) StoreCertificate(certBytes []byte, owner clients.ID) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return "", signer.Faultf(signer.CodeIncorrectCert, "cannot parse certificate: %v", err)
	}
	key, err := t.keyForPublicKey(cert)
	if err != nil {
		return "", err
	}
	entry := &certEntry{
		id:     uuid.New(),
		owner:  owner,
		bytes:  util.CopyBytes(cert.Raw),
		hash:   util.CertHash(cert.Raw),
		status: signer.StatusSaved,
		active: false,
		saved:  false,
	}
	key.certs = append(key.certs, entry)
	return entry.hash, nil
}

// ---------------------------------------------------------------------------
// signer.Client implementation
// ---------------------------------------------------------------------------

func (t *Token) TokenForKey(ctx context.Context, keyID string) (signer.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.key(keyID); err != nil {
		return signer.Token{}, err
	}
	return t.snapshot(), nil
}

func (t *Token) GenerateCertRequest(ctx context.Context, keyID string, owner clients.ID,
	usage signer.KeyUsage, subjectName string, format signer.CsrFormat) (signer.GeneratedCertRequest, error) {

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedIn {
		return signer.GeneratedCertRequest{}, signer.Faultf(faultLoginRequired, "token %s is not logged in", t.id)
	}
	key, err := t.key(keyID)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	if key.usage != signer.UsageUnset && key.usage != usage {
		return signer.GeneratedCertRequest{}, signer.Faultf(signer.CodeWrongCertUse,
			"key %s is for %s", keyID, key.usage)
	}

	csrBytes, err := t.buildCsr(key, subjectName, format)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}

	// First CSR pins the key usage.
	key.usage = usage
	entry := &csrEntry{
		id:          uuid.New(),
		owner:       owner,
		subjectName: subjectName,
		format:      format,
	}
	key.csrs = append(key.csrs, entry)

	return signer.GeneratedCertRequest{
		CsrID:    entry.id,
		KeyID:    key.id,
		Owner:    owner,
		KeyUsage: usage,
		Format:   format,
		Bytes:    csrBytes,
	}, nil
}

func (t *Token) RegenerateCertRequest(ctx context.Context, csrID string, format signer.CsrFormat) (signer.GeneratedCertRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, csr, err := t.csr(csrID)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	// Stored metadata stays untouched; only the returned bytes are fresh.
	csrBytes, err := t.buildCsr(key, csr.subjectName, format)
	if err != nil {
		return signer.GeneratedCertRequest{}, err
	}
	return signer.GeneratedCertRequest{
		CsrID:    csr.id,
		KeyID:    key.id,
		Owner:    csr.owner,
		KeyUsage: key.usage,
		Format:   format,
		Bytes:    csrBytes,
	}, nil
}

func (t *Token) CertificateForHash(ctx context.Context, hash string) (signer.Certificate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, cert, err := t.certByHash(hash)
	if err != nil {
		return signer.Certificate{}, err
	}
	return cert.snapshot(), nil
}

func (t *Token) ImportCert(ctx context.Context, certBytes []byte, status signer.CertStatus, owner clients.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedIn {
		return signer.Faultf(faultLoginRequired, "token %s is not logged in", t.id)
	}
	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return signer.Faultf(signer.CodeIncorrectCert, "cannot parse certificate: %v", err)
	}
	hash := util.CertHash(cert.Raw)

	// A certificate already present on the token (placed there by an
	// external tool) is adopted into the configuration; a certificate that
	// was already imported is a duplicate.
	if key, existing, err := t.certByHash(hash); err == nil {
		if existing.saved {
			return signer.Faultf(signer.CodeCertExists, "certificate with hash %s already imported", hash)
		}
		if err := checkCertUsage(key, cert); err != nil {
			return err
		}
		existing.saved = true
		existing.active = true
		existing.status = status
		existing.owner = owner
		return nil
	}

	key, err := t.keyForPublicKey(cert)
	if err != nil {
		return err
	}
	if err := checkCertUsage(key, cert); err != nil {
		return err
	}
	key.certs = append(key.certs, &certEntry{
		id:     uuid.New(),
		owner:  owner,
		bytes:  util.CopyBytes(cert.Raw),
		hash:   hash,
		status: status,
		active: true,
		saved:  true,
	})
	return nil
}

func (t *Token) SetCertStatus(ctx context.Context, certID string, status signer.CertStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, cert, err := t.certByID(certID)
	if err != nil {
		return err
	}
	cert.status = status
	return nil
}

func (t *Token) ActivateCert(ctx context.Context, certID string) error {
	return t.setCertActive(certID, true)
}

func (t *Token) DeactivateCert(ctx context.Context, certID string) error {
	return t.setCertActive(certID, false)
}

func (t *Token) setCertActive(certID string, active bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, cert, err := t.certByID(certID)
	if err != nil {
		return err
	}
	cert.active = active
	return nil
}

func (t *Token) DeleteCert(ctx context.Context, certID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedIn {
		return signer.Faultf(faultLoginRequired, "token %s is not logged in", t.id)
	}
	for _, k := range t.keys {
		for i, c := range k.certs {
			if c.id == certID {
				k.certs = append(k.certs[:i], k.certs[i+1:]...)
				return nil
			}
		}
	}
	return signer.Faultf(signer.CodeCertNotFound, "certificate with id %s not found", certID)
}

func (t *Token) DeleteCertRequest(ctx context.Context, csrID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loggedIn {
		return signer.Faultf(faultLoginRequired, "token %s is not logged in", t.id)
	}
	for _, k := range t.keys {
		for i, c := range k.csrs {
			if c.id == csrID {
				k.csrs = append(k.csrs[:i], k.csrs[i+1:]...)
				return nil
			}
		}
	}
	return signer.Faultf(signer.CodeCsrNotFound, "csr with id %s not found", csrID)
}

func (t *Token) KeyIDForCertHash(ctx context.Context, hash string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, _, err := t.certByHash(hash)
	if err != nil {
		return "", err
	}
	return key.id, nil
}

func (t *Token) TokenAndKeyForCertHash(ctx context.Context, hash string) (signer.Token, signer.Key, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, _, err := t.certByHash(hash)
	if err != nil {
		return signer.Token{}, signer.Key{}, err
	}
	return t.snapshot(), key.snapshot(), nil
}

func (t *Token) TokenAndKeyForCsr(ctx context.Context, csrID string) (signer.Token, signer.Key, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, _, err := t.csr(csrID)
	if err != nil {
		return signer.Token{}, signer.Key{}, err
	}
	return t.snapshot(), key.snapshot(), nil
}

// ---------------------------------------------------------------------------
// Internal lookups and helpers (caller holds t.mu)
// ---------------------------------------------------------------------------

func (t *Token) key(keyID string) (*keyEntry, error) {
	for _, k := range t.keys {
		if k.id == keyID {
			return k, nil
		}
	}
	return nil, signer.Faultf(signer.CodeKeyNotFound, "key with id %s not found", keyID)
}

func (t *Token) csr(csrID string) (*keyEntry, *csrEntry, error) {
	for _, k := range t.keys {
		for _, c := range k.csrs {
			if c.id == csrID {
				return k, c, nil
			}
		}
	}
	return nil, nil, signer.Faultf(signer.CodeCsrNotFound, "csr with id %s not found", csrID)
}

func (t *Token) certByHash(hash string) (*keyEntry, *certEntry, error) {
	for _, k := range t.keys {
		for _, c := range k.certs {
			if c.hash == hash {
				return k, c, nil
			}
		}
	}
	return nil, nil, signer.Faultf(signer.CodeCertNotFound, "certificate with hash %s not found", hash)
}

func (t *Token) certByID(certID string) (*keyEntry, *certEntry, error) {
	for _, k := range t.keys {
		for _, c := range k.certs {
			if c.id == certID {
				return k, c, nil
			}
		}
	}
	return nil, nil, signer.Faultf(signer.CodeCertNotFound, "certificate with id %s not found", certID)
}

// keyForPublicKey finds the key whose public key the certificate certifies.
func (t *Token) keyForPublicKey(cert *x509.Certificate) (*keyEntry, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return nil, signer.Faultf(signer.CodeIncorrectCert, "unsupported public key: %v", err)
	}
	for _, k := range t.keys {
		if string(k.pub) == string(pubDER) {
			return k, nil
		}
	}
	return nil, signer.Faultf(signer.CodeKeyNotFound, "no key matches the certificate public key")
}

// checkCertUsage verifies the certificate agrees with the key's pinned
// usage, or pins it when unset.
func checkCertUsage(key *keyEntry, cert *x509.Certificate) error {
	usage := signer.UsageSigning
	if isAuthCert(cert) {
		usage = signer.UsageAuthentication
	}
	if key.usage == signer.UsageUnset {
		key.usage = usage
		return nil
	}
	if key.usage != usage {
		return signer.Faultf(signer.CodeWrongCertUse,
			"certificate usage %s does not match key usage %s", usage, key.usage)
	}
	return nil
}

// isAuthCert mirrors the classification the orchestrator applies: client
// authentication in the extended key usage marks an auth certificate.
func isAuthCert(cert *x509.Certificate) bool {
	for _, eku := range cert.ExtKeyUsage {
		if eku == x509.ExtKeyUsageClientAuth {
			return true
		}
	}
	return false
}

// buildCsr signs a fresh PKCS#10 request with the key's private key.
func (t *Token) buildCsr(key *keyEntry, subjectName string, format signer.CsrFormat) ([]byte, error) {
	buf, err := key.priv.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()
	priv, err := x509.ParseECPrivateKey(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}

	template := &x509.CertificateRequest{
		Subject:            parseSubjectName(subjectName),
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, priv)
	if err != nil {
		return nil, fmt.Errorf("creating certificate request: %w", err)
	}
	if format == signer.FormatDER {
		return der, nil
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}

// parseSubjectName parses a "C=FI, O=GOV, CN=1234" subject string into a
// pkix.Name. Unknown attributes are ignored.
func parseSubjectName(subjectName string) pkix.Name {
	var name pkix.Name
	for _, part := range strings.Split(subjectName, ",") {
		part = strings.TrimSpace(part)
		id, value, ok := strings.Cut(part, "=")
		if !ok || value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(id)) {
		case "C":
			name.Country = append(name.Country, value)
		case "O":
			name.Organization = append(name.Organization, value)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, value)
		case "L":
			name.Locality = append(name.Locality, value)
		case "ST":
			name.Province = append(name.Province, value)
		case "CN":
			name.CommonName = value
		case "SERIALNUMBER":
			name.SerialNumber = value
		}
	}
	return name
}

// snapshot builds an immutable signer.Token copy. Caller holds t.mu.
func (t *Token) snapshot() signer.Token {
	keys := make([]signer.Key, len(t.keys))
	for i, k := range t.keys {
		keys[i] = k.snapshot()
	}
	return signer.Token{
		ID:       t.id,
		Name:     t.name,
		Active:   t.active,
		LoggedIn: t.loggedIn,
		Keys:     keys,
	}
}

func (k *keyEntry) snapshot() signer.Key {
	csrs := make([]signer.Csr, len(k.csrs))
	for i, c := range k.csrs {
		csrs[i] = signer.Csr{ID: c.id, Owner: c.owner, SubjectName: c.subjectName, Format: c.format}
	}
	certs := make([]signer.Certificate, len(k.certs))
	for i, c := range k.certs {
		certs[i] = c.snapshot()
	}
	return signer.Key{
		ID:        k.id,
		Label:     k.label,
		Usage:     k.usage,
		Available: true,
		Csrs:      csrs,
		Certs:     certs,
	}
}

func (c *certEntry) snapshot() signer.Certificate {
	return signer.Certificate{
		ID:     c.id,
		Owner:  c.owner,
		Bytes:  util.CopyBytes(c.bytes),
		Hash:   c.hash,
		Status: c.status,
		Active: c.active,
		Saved:  c.saved,
	}
}
