package certs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/tokencert/signer"
)

func TestTranslateFault(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{signer.CodeCertExists, ErrCertificateExists},
		{signer.CodeIncorrectCert, ErrInvalidCertificate},
		{signer.CodeWrongCertUse, ErrWrongCertificateUsage},
		{signer.CodeCsrNotFound, ErrCsrNotFound},
		{signer.CodeKeyNotFound, ErrKeyNotFound},
		{signer.CodeCertNotFound, ErrCertificateNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			got := translateFault(signer.Faultf(tc.code, "detail for %s", tc.code))
			require.ErrorIs(t, got, tc.want)
			assert.Contains(t, got.Error(), "detail for "+tc.code)
		})
	}
}

func TestTranslateFaultUnknownCodePassesThrough(t *testing.T) {
	fault := signer.Faultf(signer.FaultCode("TokenBusy"), "token busy")
	got := translateFault(fault)
	assert.Equal(t, error(fault), got)
	assert.NotErrorIs(t, got, ErrInternal)
}

func TestTranslateFaultNonFaultPassesThrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Equal(t, plain, translateFault(plain))
	assert.NoError(t, translateFault(nil))
}
