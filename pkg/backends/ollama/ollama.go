// Package ollama provides the requester for an Ollama-compatible local
// server. The generate endpoint streams one JSON object per chunk, terminated
// by newline; the reply is the in-order concatenation of the chunks.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/soratani/nekochat/pkg/backends/backend"
)

// DefaultEndpoint is used when the config does not name an endpoint.
//
// Requires Ollama to be running locally.
const DefaultEndpoint = "http://localhost:11434/api/generate"

// ErrEmptyStream reports that the response body carried zero response
// fragments. Its text doubles as the user-visible sentinel.
var ErrEmptyStream = errors.New("ollama inference error")

var _ backend.Requester = (*Requester)(nil)

// Requester implements backend.Requester against an Ollama-compatible
// generate endpoint.
type Requester struct {
	backend.Backend
}

// New creates a Requester for the given endpoint. An empty endpoint falls
// back to DefaultEndpoint.
func New(endpoint, model string, maxTokens uint32) *Requester {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	r := &Requester{}
	r.Endpoint = endpoint
	r.Model = model
	r.MaxTokens = maxTokens

	return r
}

type apiRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens uint32 `json:"max_tokens"`
}

// fragment is one decoded line of the newline-delimited response body.
type fragment struct {
	Response *string `json:"response"`
}

// Generate sends the prompt and stitches the streamed reply back together.
// Lines that do not parse as JSON are skipped; the server may emit
// keep-alives or non-JSON framing. A body with zero response fragments
// yields ErrEmptyStream.
func (r *Requester) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := r.PostText(ctx, apiRequest{
		Model:     r.Model,
		Prompt:    prompt,
		MaxTokens: r.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	reply, ok := assemble(body)
	if !ok {
		return "", fmt.Errorf("ollama: %w", ErrEmptyStream)
	}

	return reply, nil
}

// assemble concatenates the response fields of all parseable lines in byte
// order. The body is already fully in memory, so lines carry no length
// limit. The done flag on the final chunk is deliberately ignored; the end
// of the body marks the end of the stream.
func assemble(body string) (string, bool) {
	var sb strings.Builder

	seen := false

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}

		var f fragment
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			continue
		}

		if f.Response == nil {
			continue
		}

		sb.WriteString(*f.Response)
		seen = true
	}

	if !seen {
		return "", false
	}

	return sb.String(), true
}
