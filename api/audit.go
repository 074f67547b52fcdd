package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditCsrGenerated     AuditEvent = "csr_generated"
	AuditCsrRegenerated   AuditEvent = "csr_regenerated"
	AuditCsrDeleted       AuditEvent = "csr_deleted"
	AuditCertImported     AuditEvent = "cert_imported"
	AuditCertActivated    AuditEvent = "cert_activated"
	AuditCertDisabled     AuditEvent = "cert_disabled"
	AuditCertRegRequested AuditEvent = "cert_registration_requested"
	AuditCertDelRequested AuditEvent = "cert_deletion_requested"
	AuditCertDeleted      AuditEvent = "cert_deleted"
)

// auditLogger wraps slog.Logger for structured audit logging. Certificate
// operations change the server's trust material; every mutation is logged
// with the identifiers involved, never the key or certificate bytes.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logCert is a convenience for events identified by a certificate hash.
func (al *auditLogger) logCert(event AuditEvent, r *http.Request, hash string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("cert_hash", hash),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logCsr is a convenience for events identified by a CSR id.
func (al *auditLogger) logCsr(event AuditEvent, r *http.Request, csrID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("csr_id", csrID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
