package certs_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/tokencert/certs"
	"github.com/jmcleod/tokencert/signer"
)

// selfSignedCert issues a throwaway self-signed certificate with the given
// extended key usages.
func selfSignedCert(t *testing.T, ekus ...x509.ExtKeyUsage) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		ExtKeyUsage:  ekus,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func TestClassifyCertificate(t *testing.T) {
	t.Run("client auth is authentication", func(t *testing.T) {
		usage, err := certs.ClassifyCertificate(selfSignedCert(t, x509.ExtKeyUsageClientAuth))
		require.NoError(t, err)
		assert.Equal(t, signer.UsageAuthentication, usage)
	})

	t.Run("client auth among others is authentication", func(t *testing.T) {
		usage, err := certs.ClassifyCertificate(selfSignedCert(t,
			x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth))
		require.NoError(t, err)
		assert.Equal(t, signer.UsageAuthentication, usage)
	})

	t.Run("no extended key usage is signing", func(t *testing.T) {
		usage, err := certs.ClassifyCertificate(selfSignedCert(t))
		require.NoError(t, err)
		assert.Equal(t, signer.UsageSigning, usage)
	})

	t.Run("server auth only is signing", func(t *testing.T) {
		usage, err := certs.ClassifyCertificate(selfSignedCert(t, x509.ExtKeyUsageServerAuth))
		require.NoError(t, err)
		assert.Equal(t, signer.UsageSigning, usage)
	})

	t.Run("malformed bytes", func(t *testing.T) {
		_, err := certs.ClassifyCertificate([]byte("not a certificate"))
		assert.ErrorIs(t, err, certs.ErrInvalidCertificate)
	})
}
