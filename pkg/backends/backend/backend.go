// Package backend holds shared state for inference backend implementations.
// Embed Backend in concrete requester structs to get HTTP helpers, auth and
// custom headers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBadResponse reports that the peer answered with a body that lacks the
// expected reply field. Its text doubles as the user-visible sentinel.
var ErrBadResponse = errors.New("invalid response")

// Requester produces a completion for a single prompt. Each call is
// independent; there is no conversation state.
type Requester interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Auth holds authentication settings for an inference API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Backend holds shared state for HTTP requester implementations. Concrete
// types should define their own Generate method to shadow the default stub.
type Backend struct {
	Model     string            // Model identifier passed verbatim to the peer.
	MaxTokens uint32            // Maximum tokens in the response.
	Auth      Auth              // Authentication settings.
	Endpoint  string            // Absolute request URL.
	Client    *http.Client      // HTTP client; falls back to http.DefaultClient.
	Headers   map[string]string // Extra headers applied to every request.
}

// Generate is a stub that returns an error. Concrete requesters that embed
// Backend should define their own Generate method to shadow this one.
func (b *Backend) Generate(_ context.Context, _ string) (string, error) {
	return "", errors.New("backend: Generate not implemented")
}

// httpClient returns the configured client or http.DefaultClient.
func (b *Backend) httpClient() *http.Client {
	if b.Client != nil {
		return b.Client
	}

	return http.DefaultClient
}

// NewRequest builds an *http.Request for the endpoint with auth and custom
// headers already applied.
func (b *Backend) NewRequest(ctx context.Context, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.Endpoint, body)
	if err != nil {
		return nil, err
	}

	// Apply auth.
	if b.Auth.Key != "" {
		header := b.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := b.Auth.Key
		if header == "Authorization" {
			scheme := b.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if b.Auth.Scheme != "" {
			value = b.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	// Apply custom headers.
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (b *Backend) Do(req *http.Request) (*http.Response, error) {
	return b.httpClient().Do(req) //nolint:gosec // URL is built from trusted endpoint config, not user input
}

// PostText marshals payload as JSON, sends a POST to the endpoint, checks for
// a 2xx status, and returns the full response body as text. Requesters parse
// the body themselves: the streaming backend splits it into lines, the online
// backend decodes it as a single JSON document.
func (b *Backend) PostText(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := b.NewRequest(ctx, http.MethodPost, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return string(respBody), nil
}
