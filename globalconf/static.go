package globalconf

import (
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/tokencert/clients"
)

// Static is a file-backed Conf for single-node deployments: the instance
// identifier and an optional expiry come from a YAML document, and the
// signing-certificate subject mapping follows the default certificate
// profile (O = member class, CN = member code).
type Static struct {
	instance  string
	expiresAt time.Time
	now       func() time.Time
}

var _ Conf = (*Static)(nil)

type staticFile struct {
	Instance  string    `yaml:"instance"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// NewStatic returns a Static configuration. A zero expiresAt never expires.
func NewStatic(instance string, expiresAt time.Time) *Static {
	return &Static{instance: instance, expiresAt: expiresAt, now: time.Now}
}

// LoadStatic reads a Static configuration from a YAML file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading global configuration: %w", err)
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing global configuration: %w", err)
	}
	if f.Instance == "" {
		return nil, fmt.Errorf("global configuration: instance identifier is required")
	}
	return NewStatic(f.Instance, f.ExpiresAt), nil
}

func (s *Static) VerifyValidity() error {
	if !s.expiresAt.IsZero() && s.now().After(s.expiresAt) {
		return fmt.Errorf("%w: expired at %s", ErrOutdated, s.expiresAt.Format(time.RFC3339))
	}
	return nil
}

func (s *Static) InstanceIdentifier() string {
	return s.instance
}

// SubjectClientID reads the owning member from the certificate subject:
// organization carries the member class, common name the member code.
func (s *Static) SubjectClientID(instance string, cert *x509.Certificate) (clients.ID, error) {
	if len(cert.Subject.Organization) == 0 || cert.Subject.Organization[0] == "" {
		return clients.ID{}, fmt.Errorf("certificate subject has no organization (member class)")
	}
	if cert.Subject.CommonName == "" {
		return clients.ID{}, fmt.Errorf("certificate subject has no common name (member code)")
	}
	return clients.NewMember(instance, cert.Subject.Organization[0], cert.Subject.CommonName), nil
}
