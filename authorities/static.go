package authorities

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/signer"
)

// Static is a file-backed Service configured with a fixed list of approved
// CAs. Field defaults may reference the certificate owner through the
// placeholders ${instance}, ${member_class} and ${member_code}.
type Static struct {
	cas map[string]staticCA
}

var _ Service = (*Static)(nil)

type staticCA struct {
	Name       string          `yaml:"name"`
	AuthFields []staticDnField `yaml:"auth_fields"`
	SignFields []staticDnField `yaml:"sign_fields"`
}

type staticDnField struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Default  string `yaml:"default"`
	Required bool   `yaml:"required"`
	ReadOnly bool   `yaml:"read_only"`
}

type staticFile struct {
	Authorities []staticCA `yaml:"authorities"`
}

// NewStatic builds a Static service from parsed CA entries. Used directly by
// tests; deployments normally go through LoadStatic.
func NewStatic(cas ...StaticCA) *Static {
	s := &Static{cas: make(map[string]staticCA, len(cas))}
	for _, ca := range cas {
		s.cas[ca.Name] = staticCA{
			Name:       ca.Name,
			AuthFields: toStaticFields(ca.AuthFields),
			SignFields: toStaticFields(ca.SignFields),
		}
	}
	return s
}

// StaticCA is the public form of one approved CA entry.
type StaticCA struct {
	Name       string
	AuthFields []DnField
	SignFields []DnField
}

func toStaticFields(fs []DnField) []staticDnField {
	out := make([]staticDnField, len(fs))
	for i, f := range fs {
		out[i] = staticDnField{ID: f.ID, Label: f.Label, Default: f.Default, Required: f.Required, ReadOnly: f.ReadOnly}
	}
	return out
}

// LoadStatic reads approved CA profiles from a YAML file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA profiles: %w", err)
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing CA profiles: %w", err)
	}
	s := &Static{cas: make(map[string]staticCA, len(f.Authorities))}
	for _, ca := range f.Authorities {
		if ca.Name == "" {
			return nil, fmt.Errorf("CA profiles: authority without a name")
		}
		s.cas[ca.Name] = ca
	}
	return s, nil
}

func (s *Static) Profile(caName string, usage signer.KeyUsage, owner clients.ID) (Profile, error) {
	ca, ok := s.cas[caName]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrAuthorityNotFound, caName)
	}
	var raw []staticDnField
	if usage == signer.UsageAuthentication {
		raw = ca.AuthFields
	} else {
		raw = ca.SignFields
	}
	if len(raw) == 0 {
		return Profile{}, fmt.Errorf("%w: CA %q has no %s profile", ErrProfileInstantiation, caName, usage)
	}

	expand := strings.NewReplacer(
		"${instance}", owner.Instance,
		"${member_class}", owner.Class,
		"${member_code}", owner.Code,
	)
	fields := make([]DnField, len(raw))
	for i, f := range raw {
		fields[i] = DnField{
			ID:       f.ID,
			Label:    f.Label,
			Default:  expand.Replace(f.Default),
			Required: f.Required,
			ReadOnly: f.ReadOnly,
		}
	}
	return Profile{SubjectFields: fields}, nil
}
