// Package openai provides the online HTTP requester. It speaks either the
// OpenAI completions schema or a simple custom schema, selected per config.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soratani/nekochat/pkg/backends/backend"
)

var _ backend.Requester = (*Requester)(nil)

// Requester implements backend.Requester against an online inference
// endpoint.
type Requester struct {
	backend.Backend

	// OpenAICompatible selects the request/response schema: the OpenAI
	// completions shape when true, the custom {input, generated_text}
	// shape otherwise.
	OpenAICompatible bool
}

// New creates a Requester for the given endpoint. The apiKey, when non-empty,
// is attached as a bearer credential on every request.
func New(endpoint, apiKey, model string, maxTokens uint32, openAICompatible bool) *Requester {
	r := &Requester{OpenAICompatible: openAICompatible}
	r.Endpoint = endpoint
	r.Auth = backend.Auth{Key: apiKey}
	r.Model = model
	r.MaxTokens = maxTokens

	return r
}

// --- request types ---

// The two shapes are kept as separate types so each request carries exactly
// {model, max_tokens} plus one of {prompt, input} — never both.

type compatRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens uint32 `json:"max_tokens"`
}

type customRequest struct {
	Model     string `json:"model"`
	Input     string `json:"input"`
	MaxTokens uint32 `json:"max_tokens"`
}

// --- response types ---

type compatResponse struct {
	Choices []compatChoice `json:"choices"`
}

type compatChoice struct {
	Text *string `json:"text"`
}

type customResponse struct {
	GeneratedText *string `json:"generated_text"`
}

// Generate sends the prompt to the endpoint and returns the extracted reply.
// A response body that lacks the expected reply field yields
// backend.ErrBadResponse.
func (r *Requester) Generate(ctx context.Context, prompt string) (string, error) {
	var payload any
	if r.OpenAICompatible {
		payload = compatRequest{Model: r.Model, Prompt: prompt, MaxTokens: r.MaxTokens}
	} else {
		payload = customRequest{Model: r.Model, Input: prompt, MaxTokens: r.MaxTokens}
	}

	body, err := r.PostText(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if r.OpenAICompatible {
		return parseCompat(body)
	}

	return parseCustom(body)
}

func parseCompat(body string) (string, error) {
	var resp compatResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("openai: %w: %v", backend.ErrBadResponse, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Text == nil {
		return "", fmt.Errorf("openai: %w: missing choices[0].text", backend.ErrBadResponse)
	}

	return *resp.Choices[0].Text, nil
}

func parseCustom(body string) (string, error) {
	var resp customResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("openai: %w: %v", backend.ErrBadResponse, err)
	}

	if resp.GeneratedText == nil {
		return "", fmt.Errorf("openai: %w: missing generated_text", backend.ErrBadResponse)
	}

	return *resp.GeneratedText, nil
}
