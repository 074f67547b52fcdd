// Package management sends authentication-certificate registration and
// deletion requests to the central authority. The channel is synchronous and
// fail-fast: retry policy, if any, belongs to the implementation behind it,
// never to callers.
package management

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Channel delivers management requests to the central authority.
type Channel interface {
	// SendAuthCertRegistration requests registration of an authentication
	// certificate for the server reachable at the given address.
	SendAuthCertRegistration(ctx context.Context, serverAddress string, certBytes []byte) error

	// SendAuthCertDeletion requests removal of a previously registered
	// authentication certificate.
	SendAuthCertDeletion(ctx context.Context, certBytes []byte) error
}

// HTTPSender posts management requests as JSON envelopes to a central
// authority endpoint.
type HTTPSender struct {
	url    string
	client *http.Client
}

var _ Channel = (*HTTPSender)(nil)

// NewHTTPSender returns an HTTPSender for the given endpoint URL. The URL
// must be set; an unconfigured channel fails here rather than on the first
// dispatch. A nil client falls back to http.DefaultClient.
func NewHTTPSender(url string, client *http.Client) (*HTTPSender, error) {
	if url == "" {
		return nil, errors.New("management endpoint URL is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{url: url, client: client}, nil
}

type requestEnvelope struct {
	Type          string `json:"type"`
	ServerAddress string `json:"server_address,omitempty"`
	Certificate   []byte `json:"certificate"`
}

func (s *HTTPSender) SendAuthCertRegistration(ctx context.Context, serverAddress string, certBytes []byte) error {
	return s.send(ctx, requestEnvelope{
		Type:          "auth_cert_registration",
		ServerAddress: serverAddress,
		Certificate:   certBytes,
	})
}

func (s *HTTPSender) SendAuthCertDeletion(ctx context.Context, certBytes []byte) error {
	return s.send(ctx, requestEnvelope{
		Type:        "auth_cert_deletion",
		Certificate: certBytes,
	})
}

func (s *HTTPSender) send(ctx context.Context, env requestEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding management request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building management request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending management request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("management request rejected: %s", resp.Status)
	}
	return nil
}
