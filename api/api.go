// Package api exposes the certificate lifecycle operations over REST. It is
// a thin layer: request decoding, identifier parsing and status mapping live
// here, all authorization and ordering rules live in the certs package.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/tokencert/certs"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	svc   *certs.Service
	audit *auditLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// New creates a new API instance around the lifecycle service.
func New(svc *certs.Service, opts ...Option) *API {
	a := &API{svc: svc}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Route("/keys/{keyID}/csrs", func(r chi.Router) {
		r.Post("/", a.GenerateCsr)
		r.Post("/{csrID}", a.RegenerateCsr)
	})

	r.Route("/csrs/{csrID}", func(r chi.Router) {
		r.Delete("/", a.DeleteCsr)
		r.Get("/possible-actions", a.CsrPossibleActions)
	})

	r.Post("/certificates", a.ImportCertificate)
	r.Route("/certificates/{hash}", func(r chi.Router) {
		r.Get("/", a.GetCertificate)
		r.Delete("/", a.DeleteCertificate)
		r.Get("/possible-actions", a.CertificatePossibleActions)
		r.Post("/import", a.ImportCertificateFromToken)
		r.Put("/activate", a.ActivateCertificate)
		r.Put("/disable", a.DisableCertificate)
		r.Put("/register", a.RegisterCertificate)
		r.Put("/unregister", a.UnregisterCertificate)
	})

	return r
}
