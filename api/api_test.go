package api_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/tokencert/api"
	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/certs"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/clients/memory"
	"github.com/jmcleod/tokencert/globalconf"
	"github.com/jmcleod/tokencert/signer/softtoken"
)

var member = clients.NewMember("TEST", "GOV", "1234")

type testChannel struct {
	regCalls, delCalls int
}

func (c *testChannel) SendAuthCertRegistration(ctx context.Context, serverAddress string, certBytes []byte) error {
	c.regCalls++
	return nil
}

func (c *testChannel) SendAuthCertDeletion(ctx context.Context, certBytes []byte) error {
	c.delCalls++
	return nil
}

type testEnv struct {
	srv *httptest.Server
	tok *softtoken.Token
	ch  *testChannel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tok, err := softtoken.New("test-token", "1234")
	require.NoError(t, err)
	require.NoError(t, tok.Login("1234"))

	reg := memory.NewRegistry()
	require.NoError(t, reg.Add(member))

	ch := &testChannel{}
	fields := []authorities.DnField{
		{ID: "C", Default: "FI", ReadOnly: true},
		{ID: "O", Required: true},
		{ID: "CN", Required: true},
	}
	svc := certs.NewService(certs.Collaborators{
		Signer:     tok,
		Clients:    reg,
		GlobalConf: globalconf.NewStatic("TEST", time.Now().Add(time.Hour)),
		Authorities: authorities.NewStatic(authorities.StaticCA{
			Name:       "test-ca",
			AuthFields: fields,
			SignFields: fields,
		}),
		Management: ch,
	})

	a := api.New(svc, api.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, tok: tok, ch: ch}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	require.NoError(t, err)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// generateCsr drives POST /keys/{keyID}/csrs for a fresh key.
func (e *testEnv) generateCsr(t *testing.T, usage string) api.CsrResponse {
	t.Helper()
	keyID, err := e.tok.GenerateKey("test-key")
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/keys/"+keyID+"/csrs", api.GenerateCsrRequest{
		OwnerID:            member.String(),
		KeyUsage:           usage,
		CaName:             "test-ca",
		SubjectFieldValues: map[string]string{"O": "GOV", "CN": "1234"},
		Format:             "der",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[api.CsrResponse](t, resp)
}

// importCert issues a certificate over the CSR and imports it via the API.
func (e *testEnv) importCert(t *testing.T, csr api.CsrResponse, auth bool) api.CertificateResponse {
	t.Helper()
	csrDER, err := base64.StdEncoding.DecodeString(csr.Csr)
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/certificates", api.ImportCertificateRequest{
		Certificate: base64.StdEncoding.EncodeToString(issueCert(t, csrDER, auth)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[api.CertificateResponse](t, resp)
}

func issueCert(t *testing.T, csrDER []byte, auth bool) []byte {
	t.Helper()
	csr, err := x509.ParseCertificateRequest(csrDER)
	require.NoError(t, err)
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      csr.Subject,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	if auth {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, csr.PublicKey, caKey)
	require.NoError(t, err)
	return der
}

func TestCsrLifecycle(t *testing.T) {
	e := newTestEnv(t)
	csr := e.generateCsr(t, "signing")
	assert.NotEmpty(t, csr.CsrID)
	assert.Equal(t, "signing", csr.KeyUsage)
	assert.Equal(t, member.String(), csr.OwnerID)

	resp := e.do(t, http.MethodPost,
		fmt.Sprintf("/keys/%s/csrs/%s?csr_format=pem", csr.KeyID, csr.CsrID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	regen := decodeBody[api.CsrResponse](t, resp)
	assert.Equal(t, csr.CsrID, regen.CsrID)
	assert.Equal(t, "pem", regen.Format)

	resp = e.do(t, http.MethodGet, "/csrs/"+csr.CsrID+"/possible-actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	possible := decodeBody[api.PossibleActionsResponse](t, resp)
	assert.Contains(t, possible.Actions, "delete")

	resp = e.do(t, http.MethodDelete, "/csrs/"+csr.CsrID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/csrs/"+csr.CsrID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateCsrValidation(t *testing.T) {
	e := newTestEnv(t)
	keyID, err := e.tok.GenerateKey("test-key")
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/keys/"+keyID+"/csrs", api.GenerateCsrRequest{
		OwnerID: member.String(), KeyUsage: "encipherment", CaName: "test-ca",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/keys/"+keyID+"/csrs", api.GenerateCsrRequest{
		OwnerID: "not-a-client-id", KeyUsage: "signing", CaName: "test-ca",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/keys/"+keyID+"/csrs", api.GenerateCsrRequest{
		OwnerID: member.String(), KeyUsage: "signing", CaName: "bogus-ca",
		SubjectFieldValues: map[string]string{"O": "GOV", "CN": "1234"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/keys/no-such-key/csrs", api.GenerateCsrRequest{
		OwnerID: member.String(), KeyUsage: "signing", CaName: "test-ca",
		SubjectFieldValues: map[string]string{"O": "GOV", "CN": "1234"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCertificateLifecycle(t *testing.T) {
	e := newTestEnv(t)
	cert := e.importCert(t, e.generateCsr(t, "signing"), false)
	assert.Equal(t, "registered", cert.Status)
	assert.Equal(t, member.String(), cert.OwnerID)
	assert.True(t, cert.Active)

	resp := e.do(t, http.MethodGet, "/certificates/"+cert.Hash, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[api.CertificateResponse](t, resp)
	assert.Equal(t, cert, got)

	resp = e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/disable", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(t, http.MethodGet, "/certificates/"+cert.Hash, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeBody[api.CertificateResponse](t, resp).Active)

	resp = e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/activate", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/certificates/"+cert.Hash, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(t, http.MethodGet, "/certificates/"+cert.Hash, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportCertificateValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/certificates", api.ImportCertificateRequest{
		Certificate: "%%% not base64 %%%",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/certificates", api.ImportCertificateRequest{
		Certificate: base64.StdEncoding.EncodeToString([]byte("not a certificate")),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Duplicate import conflicts.
	csr := e.generateCsr(t, "signing")
	cert := e.importCert(t, csr, false)
	resp = e.do(t, http.MethodPost, "/certificates", api.ImportCertificateRequest{
		Certificate: cert.Certificate,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "already exists")
}

func TestRegisterAndUnregister(t *testing.T) {
	e := newTestEnv(t)
	cert := e.importCert(t, e.generateCsr(t, "authentication"), true)
	require.Equal(t, "saved", cert.Status)

	resp := e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/register",
		api.RegisterCertificateRequest{ServerAddress: "ss1.example.org"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, e.ch.regCalls)

	resp = e.do(t, http.MethodGet, "/certificates/"+cert.Hash, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "registration in progress",
		decodeBody[api.CertificateResponse](t, resp).Status)

	// Registration already requested.
	resp = e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/register",
		api.RegisterCertificateRequest{ServerAddress: "ss1.example.org"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A requested registration blocks deletion until unregistered.
	resp = e.do(t, http.MethodDelete, "/certificates/"+cert.Hash, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/unregister", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, e.ch.delCalls)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	cert := e.importCert(t, e.generateCsr(t, "signing"), false)

	// Missing server address.
	resp := e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/register",
		api.RegisterCertificateRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Sign certificates cannot be registered.
	resp = e.do(t, http.MethodPut, "/certificates/"+cert.Hash+"/register",
		api.RegisterCertificateRequest{ServerAddress: "ss1.example.org"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, e.ch.regCalls)
}

func TestImportFromToken(t *testing.T) {
	e := newTestEnv(t)
	csr := e.generateCsr(t, "signing")
	csrDER, err := base64.StdEncoding.DecodeString(csr.Csr)
	require.NoError(t, err)
	hash, err := e.tok.StoreCertificate(issueCert(t, csrDER, false), member)
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/certificates/"+hash+"/import", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	got := decodeBody[api.CertificateResponse](t, resp)
	assert.True(t, got.Saved)
	assert.Equal(t, "registered", got.Status)
}

func TestPossibleActionsForCertificate(t *testing.T) {
	e := newTestEnv(t)
	cert := e.importCert(t, e.generateCsr(t, "authentication"), true)

	resp := e.do(t, http.MethodGet, "/certificates/"+cert.Hash+"/possible-actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	possible := decodeBody[api.PossibleActionsResponse](t, resp)
	assert.Contains(t, possible.Actions, "register")
	assert.Contains(t, possible.Actions, "delete")

	resp = e.do(t, http.MethodGet, "/certificates/feed/possible-actions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenAPISpecServed(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tokencert API")
}

func TestMalformedBody(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/certificates",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
