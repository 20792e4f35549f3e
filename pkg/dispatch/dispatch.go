// Package dispatch maps a Config plus a prompt to a single reply by
// selecting and driving one backend. Backend failures never escape: they are
// rendered as single-line diagnostic strings, so the caller can keep reading
// prompts across transient failures.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/soratani/nekochat/pkg/backends/backend"
	"github.com/soratani/nekochat/pkg/backends/ollama"
	"github.com/soratani/nekochat/pkg/backends/openai"
	"github.com/soratani/nekochat/pkg/backends/subprocess"
	"github.com/soratani/nekochat/pkg/config"
)

// Local framework tags recognized when use_local_model is set.
const (
	FrameworkPython = "python"
	FrameworkOllama = "ollama"
)

// ErrUnsupportedFramework reports a local_framework outside the recognized
// set. Its text doubles as the user-visible sentinel.
var ErrUnsupportedFramework = errors.New("unsupported local framework")

// Dispatcher selects a backend per prompt. It is stateless between calls;
// the HTTP client is shared only for connection reuse.
type Dispatcher struct {
	cfg    config.Config
	log    zerolog.Logger
	client *http.Client
}

// New creates a Dispatcher for the given config.
func New(cfg config.Config, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Reply runs one prompt through the selected backend and returns the reply
// text. Errors are rendered as single-line diagnostics; Reply never fails.
func (d *Dispatcher) Reply(ctx context.Context, prompt string) string {
	r, kind, err := d.requester()
	if err != nil {
		d.log.Debug().Err(err).Msg("backend selection failed")
		return render(err)
	}

	d.log.Debug().Str("backend", kind).Str("model", d.cfg.ModelName).Msg("dispatching prompt")

	start := time.Now()

	reply, err := r.Generate(ctx, prompt)
	if err != nil {
		d.log.Debug().Err(err).Str("backend", kind).Msg("inference failed")
		return render(err)
	}

	d.log.Debug().Str("backend", kind).Dur("elapsed", time.Since(start)).Msg("reply assembled")

	return reply
}

// requester resolves the decision table:
//
//	use_local_model=false            -> online (OpenAI or custom schema)
//	use_local_model, "python"        -> subprocess helper
//	use_local_model, "ollama"        -> Ollama-compatible server
//	use_local_model, anything else   -> ErrUnsupportedFramework
//
// The unsupported case is decided here, before any requester exists, so no
// network or process activity can occur for it.
func (d *Dispatcher) requester() (backend.Requester, string, error) {
	cfg := d.cfg

	if !cfg.UseLocalModel {
		r := openai.New(cfg.Endpoint, cfg.APIKey, cfg.ModelName, cfg.MaxTokensOrDefault(), cfg.OpenAICompatible)
		r.Client = d.client

		return r, "online", nil
	}

	switch cfg.LocalFramework {
	case FrameworkPython:
		return subprocess.New(cfg.InterpreterOrDefault(), cfg.ScriptPathOrDefault()), "python", nil
	case FrameworkOllama:
		r := ollama.New(cfg.Endpoint, cfg.ModelName, cfg.MaxTokensOrDefault())
		r.Client = d.client

		return r, "ollama", nil
	default:
		return nil, "", fmt.Errorf("dispatch: %w: %q", ErrUnsupportedFramework, cfg.LocalFramework)
	}
}

// render converts a backend error to the user-visible diagnostic line.
// The three fixed sentinels are returned bare; everything else carries a
// short tag plus the underlying error.
func render(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFramework):
		return ErrUnsupportedFramework.Error()
	case errors.Is(err, backend.ErrBadResponse):
		return backend.ErrBadResponse.Error()
	case errors.Is(err, ollama.ErrEmptyStream):
		return ollama.ErrEmptyStream.Error()
	}

	var exitErr *subprocess.ExitError
	if errors.As(err, &exitErr) {
		return "python script error: " + strings.TrimSpace(exitErr.Stderr)
	}

	var spawnErr *subprocess.SpawnError
	if errors.As(err, &spawnErr) {
		return fmt.Sprintf("python invocation error: %v", spawnErr.Err)
	}

	return fmt.Sprintf("inference error: %v", err)
}
