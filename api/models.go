package api

// ImportCertificateRequest is the JSON body for POST /certificates.
type ImportCertificateRequest struct {
	// Certificate is the base64-encoded DER certificate.
	Certificate string `json:"certificate"`
}

// CertificateResponse describes one certificate.
type CertificateResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id,omitempty"`
	Hash        string `json:"hash"`
	Status      string `json:"status"`
	Active      bool   `json:"active"`
	Saved       bool   `json:"saved"`
	Certificate string `json:"certificate"`
}

// GenerateCsrRequest is the JSON body for POST /keys/{keyID}/csrs.
type GenerateCsrRequest struct {
	OwnerID            string            `json:"owner_id"`
	KeyUsage           string            `json:"key_usage"`
	CaName             string            `json:"ca_name"`
	SubjectFieldValues map[string]string `json:"subject_field_values,omitempty"`
	Format             string            `json:"format,omitempty"`
}

// CsrResponse is returned from CSR generation and regeneration.
type CsrResponse struct {
	CsrID    string `json:"csr_id"`
	KeyID    string `json:"key_id"`
	OwnerID  string `json:"owner_id,omitempty"`
	KeyUsage string `json:"key_usage"`
	Format   string `json:"format"`
	// Csr is the base64-encoded request in the requested format.
	Csr string `json:"csr"`
}

// RegisterCertificateRequest is the JSON body for
// PUT /certificates/{hash}/register.
type RegisterCertificateRequest struct {
	ServerAddress string `json:"server_address"`
}

// PossibleActionsResponse lists the actions currently possible for a
// certificate or CSR.
type PossibleActionsResponse struct {
	Actions []string `json:"actions"`
}

// ErrorResponse is the JSON body for all error status codes.
type ErrorResponse struct {
	Error string `json:"error"`
}
