package agentdef

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher fetches agent configuration payloads over HTTP. It requests
// GET {baseURL}/agents/{agentID} and decodes the JSON body; the credentials
// string, when non-empty, is sent as a bearer token.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets the underlying HTTP client. Defaults to a client
// with a 30 second timeout.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, agentID, credentials string) (Payload, error) {
	endpoint := f.baseURL + "/agents/" + url.PathEscape(agentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if credentials != "" {
		req.Header.Set("Authorization", "Bearer "+credentials)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("configuration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Payload{}, fmt.Errorf("configuration request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("failed to decode configuration payload: %w", err)
	}
	return payload, nil
}
