package authorities_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/signer"
)

func testCA() authorities.StaticCA {
	return authorities.StaticCA{
		Name: "Test CA",
		SignFields: []authorities.DnField{
			{ID: "C", Label: "Country", Default: "FI", ReadOnly: true},
			{ID: "O", Label: "Organization", Default: "${member_class}", ReadOnly: true},
			{ID: "CN", Label: "Common name", Default: "${member_code}", ReadOnly: true},
		},
		AuthFields: []authorities.DnField{
			{ID: "C", Label: "Country", Default: "FI", ReadOnly: true},
			{ID: "CN", Label: "Server DNS name", Required: true},
		},
	}
}

func TestProfile(t *testing.T) {
	svc := authorities.NewStatic(testCA())
	owner := clients.NewMember("TEST", "GOV", "1234")

	p, err := svc.Profile("Test CA", signer.UsageSigning, owner)
	require.NoError(t, err)
	require.Len(t, p.SubjectFields, 3)
	assert.Equal(t, "GOV", p.SubjectFields[1].Default)
	assert.Equal(t, "1234", p.SubjectFields[2].Default)

	p, err = svc.Profile("Test CA", signer.UsageAuthentication, owner)
	require.NoError(t, err)
	require.Len(t, p.SubjectFields, 2)
	assert.True(t, p.SubjectFields[1].Required)
}

func TestProfileUnknownCA(t *testing.T) {
	svc := authorities.NewStatic(testCA())
	_, err := svc.Profile("Nope CA", signer.UsageSigning, clients.ID{})
	assert.ErrorIs(t, err, authorities.ErrAuthorityNotFound)
}

func TestProfileMissingUsage(t *testing.T) {
	ca := testCA()
	ca.AuthFields = nil
	svc := authorities.NewStatic(ca)
	_, err := svc.Profile("Test CA", signer.UsageAuthentication, clients.ID{})
	assert.ErrorIs(t, err, authorities.ErrProfileInstantiation)
}

func TestLoadStatic(t *testing.T) {
	doc := `
authorities:
  - name: Test CA
    sign_fields:
      - id: C
        default: FI
        read_only: true
      - id: CN
        default: ${member_code}
        read_only: true
`
	path := filepath.Join(t.TempDir(), "authorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	svc, err := authorities.LoadStatic(path)
	require.NoError(t, err)

	p, err := svc.Profile("Test CA", signer.UsageSigning, clients.NewMember("TEST", "GOV", "42"))
	require.NoError(t, err)
	require.Len(t, p.SubjectFields, 2)
	assert.Equal(t, "42", p.SubjectFields[1].Default)
}
