package api

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/tokencert/actions"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/signer"
)

func parseKeyUsage(s string) (signer.KeyUsage, error) {
	switch signer.KeyUsage(s) {
	case signer.UsageAuthentication:
		return signer.UsageAuthentication, nil
	case signer.UsageSigning:
		return signer.UsageSigning, nil
	}
	return signer.UsageUnset, fmt.Errorf("unknown key usage %q", s)
}

// parseCsrFormat defaults an empty value to PEM.
func parseCsrFormat(s string) (signer.CsrFormat, error) {
	switch signer.CsrFormat(s) {
	case signer.FormatPEM, "":
		return signer.FormatPEM, nil
	case signer.FormatDER:
		return signer.FormatDER, nil
	}
	return "", fmt.Errorf("unknown csr format %q", s)
}

func certToAPI(cert signer.Certificate) CertificateResponse {
	resp := CertificateResponse{
		ID:          cert.ID,
		Hash:        cert.Hash,
		Status:      string(cert.Status),
		Active:      cert.Active,
		Saved:       cert.Saved,
		Certificate: base64.StdEncoding.EncodeToString(cert.Bytes),
	}
	if !cert.Owner.IsZero() {
		resp.OwnerID = cert.Owner.String()
	}
	return resp
}

func csrToAPI(req signer.GeneratedCertRequest) CsrResponse {
	resp := CsrResponse{
		CsrID:    req.CsrID,
		KeyID:    req.KeyID,
		KeyUsage: string(req.KeyUsage),
		Format:   string(req.Format),
		Csr:      base64.StdEncoding.EncodeToString(req.Bytes),
	}
	if !req.Owner.IsZero() {
		resp.OwnerID = req.Owner.String()
	}
	return resp
}

func actionsToAPI(possible actions.Set) PossibleActionsResponse {
	list := possible.List()
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = string(a)
	}
	return PossibleActionsResponse{Actions: names}
}

// GenerateCsr handles POST /keys/{keyID}/csrs.
func (a *API) GenerateCsr(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	req, ok := decodeJSON[GenerateCsrRequest](w, r)
	if !ok {
		return
	}
	usage, err := parseKeyUsage(req.KeyUsage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := parseCsrFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner, err := clients.ParseID(req.OwnerID)
	if err != nil {
		mapError(w, err)
		return
	}

	generated, err := a.svc.GenerateCertRequest(r.Context(), keyID, owner, usage,
		req.CaName, req.SubjectFieldValues, format)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logCsr(AuditCsrGenerated, r, generated.CsrID,
		slog.String("key_id", keyID),
		slog.String("key_usage", string(usage)),
		slog.String("owner_id", owner.String()))
	writeJSON(w, http.StatusCreated, csrToAPI(generated))
}

// RegenerateCsr handles POST /keys/{keyID}/csrs/{csrID}. The stored CSR is
// unchanged; the response carries freshly encoded bytes in the requested
// format.
func (a *API) RegenerateCsr(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	csrID := chi.URLParam(r, "csrID")
	format, err := parseCsrFormat(r.URL.Query().Get("csr_format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := a.svc.RegenerateCertRequest(r.Context(), keyID, csrID, format)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logCsr(AuditCsrRegenerated, r, csrID, slog.String("key_id", keyID))
	writeJSON(w, http.StatusOK, csrToAPI(generated))
}

// DeleteCsr handles DELETE /csrs/{csrID}.
func (a *API) DeleteCsr(w http.ResponseWriter, r *http.Request) {
	csrID := chi.URLParam(r, "csrID")
	if err := a.svc.DeleteCsr(r.Context(), csrID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCsr(AuditCsrDeleted, r, csrID)
	w.WriteHeader(http.StatusNoContent)
}

// CsrPossibleActions handles GET /csrs/{csrID}/possible-actions.
func (a *API) CsrPossibleActions(w http.ResponseWriter, r *http.Request) {
	possible, err := a.svc.GetPossibleActionsForCsr(r.Context(), chi.URLParam(r, "csrID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionsToAPI(possible))
}

// ImportCertificate handles POST /certificates.
func (a *API) ImportCertificate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ImportCertificateRequest](w, r)
	if !ok {
		return
	}
	certBytes, err := base64.StdEncoding.DecodeString(req.Certificate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 in certificate field")
		return
	}

	cert, err := a.svc.ImportCertificate(r.Context(), certBytes)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logCert(AuditCertImported, r, cert.Hash,
		slog.String("owner_id", cert.Owner.String()),
		slog.String("status", string(cert.Status)))
	writeJSON(w, http.StatusCreated, certToAPI(cert))
}

// ImportCertificateFromToken handles POST /certificates/{hash}/import.
func (a *API) ImportCertificateFromToken(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	cert, err := a.svc.ImportCertificateFromToken(r.Context(), hash)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertImported, r, cert.Hash, slog.String("source", "token"))
	writeJSON(w, http.StatusCreated, certToAPI(cert))
}

// GetCertificate handles GET /certificates/{hash}.
func (a *API) GetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := a.svc.GetCertificateInfo(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certToAPI(cert))
}

// CertificatePossibleActions handles GET /certificates/{hash}/possible-actions.
func (a *API) CertificatePossibleActions(w http.ResponseWriter, r *http.Request) {
	possible, err := a.svc.GetPossibleActionsForCertificate(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionsToAPI(possible))
}

// ActivateCertificate handles PUT /certificates/{hash}/activate.
func (a *API) ActivateCertificate(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := a.svc.ActivateCertificate(r.Context(), hash); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertActivated, r, hash)
	w.WriteHeader(http.StatusNoContent)
}

// DisableCertificate handles PUT /certificates/{hash}/disable.
func (a *API) DisableCertificate(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := a.svc.DeactivateCertificate(r.Context(), hash); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertDisabled, r, hash)
	w.WriteHeader(http.StatusNoContent)
}

// RegisterCertificate handles PUT /certificates/{hash}/register.
func (a *API) RegisterCertificate(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	req, ok := decodeJSON[RegisterCertificateRequest](w, r)
	if !ok {
		return
	}
	if req.ServerAddress == "" {
		writeError(w, http.StatusBadRequest, "server_address is required")
		return
	}

	if err := a.svc.RegisterAuthCert(r.Context(), hash, req.ServerAddress); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertRegRequested, r, hash,
		slog.String("server_address", req.ServerAddress))
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterCertificate handles PUT /certificates/{hash}/unregister.
func (a *API) UnregisterCertificate(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := a.svc.UnregisterAuthCert(r.Context(), hash); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertDelRequested, r, hash)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCertificate handles DELETE /certificates/{hash}.
func (a *API) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := a.svc.DeleteCertificate(r.Context(), hash); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logCert(AuditCertDeleted, r, hash)
	w.WriteHeader(http.StatusNoContent)
}
