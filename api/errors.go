package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/certs"
	"github.com/jmcleod/tokencert/clients"
	"github.com/jmcleod/tokencert/globalconf"
)

// maxBodySize bounds request bodies. Certificates and CSRs are small; a
// megabyte leaves headroom for long chains without inviting abuse.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads and decodes a JSON request body, writing the error
// response itself on failure.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return v, false
	}
	return v, true
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, certs.ErrCertificateNotFound),
		errors.Is(err, certs.ErrKeyNotFound),
		errors.Is(err, certs.ErrCsrNotFound),
		errors.Is(err, certs.ErrClientNotFound),
		errors.Is(err, authorities.ErrAuthorityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, certs.ErrActionNotPossible),
		errors.Is(err, certs.ErrCertificateExists),
		errors.Is(err, certs.ErrWrongKeyUsage),
		errors.Is(err, certs.ErrWrongCertificateUsage):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, certs.ErrInvalidCertificate),
		errors.Is(err, certs.ErrInvalidDnParameter),
		errors.Is(err, certs.ErrAuthCertNotSupported),
		errors.Is(err, certs.ErrSignCertNotSupported),
		errors.Is(err, clients.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, certs.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, globalconf.ErrOutdated):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
