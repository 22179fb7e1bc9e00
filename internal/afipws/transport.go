// Package afipws adapts the authority's SOAP webservices to the interfaces
// the core depends on. Everything wire-specific lives here so the signer,
// transport and registry client can be swapped independently.
package afipws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransport posts signed envelopes over plain HTTPS. It knows nothing
// about the envelope contents.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, envelope []byte, endpointURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", "")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post envelope: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	// Fault envelopes come back with non-2xx status; the caller parses
	// the body either way to surface the remote message verbatim.
	return body, nil
}
