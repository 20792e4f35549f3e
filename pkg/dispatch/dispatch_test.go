package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/soratani/nekochat/pkg/config"
	"github.com/soratani/nekochat/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxTokens(n uint32) *uint32 { return &n }

func newDispatcher(cfg config.Config) *dispatch.Dispatcher {
	return dispatch.New(cfg, zerolog.Nop())
}

func TestReply_OnlineOpenAICompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"hello"}]}`))
	}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName:        "m",
		Endpoint:         srv.URL,
		OpenAICompatible: true,
		MaxTokens:        maxTokens(32),
	})

	assert.Equal(t, "hello", d.Reply(context.Background(), "Hi"))
}

func TestReply_OnlineShapeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName:        "m",
		Endpoint:         srv.URL,
		OpenAICompatible: true,
	})

	assert.Equal(t, "invalid response", d.Reply(context.Background(), "Hi"))
}

func TestReply_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\"response\":\"he\"}\n{\"response\":\"llo\"}\n{\"done\":true}\n"))
	}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName:      "m",
		Endpoint:       srv.URL,
		UseLocalModel:  true,
		LocalFramework: "ollama",
	})

	assert.Equal(t, "hello", d.Reply(context.Background(), "Hi"))
}

func TestReply_OllamaEmptyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName:      "m",
		Endpoint:       srv.URL,
		UseLocalModel:  true,
		LocalFramework: "ollama",
	})

	assert.Equal(t, "ollama inference error", d.Reply(context.Background(), "Hi"))
}

func TestReply_Subprocess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo 'hi'\n"), 0o600))

	d := newDispatcher(config.Config{
		ModelName:      "m",
		UseLocalModel:  true,
		LocalFramework: "python",
		Interpreter:    "sh",
		ScriptPath:     script,
	})

	assert.Equal(t, "hi", d.Reply(context.Background(), "Hi"))
}

func TestReply_SubprocessScriptError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo 'out of memory' >&2\nexit 1\n"), 0o600))

	d := newDispatcher(config.Config{
		ModelName:      "m",
		UseLocalModel:  true,
		LocalFramework: "python",
		Interpreter:    "sh",
		ScriptPath:     script,
	})

	assert.Equal(t, "python script error: out of memory", d.Reply(context.Background(), "Hi"))
}

func TestReply_SubprocessSpawnFailure(t *testing.T) {
	d := newDispatcher(config.Config{
		ModelName:      "m",
		UseLocalModel:  true,
		LocalFramework: "python",
		Interpreter:    "/nonexistent/interpreter",
		ScriptPath:     "helper.py",
	})

	reply := d.Reply(context.Background(), "Hi")
	assert.True(t, strings.HasPrefix(reply, "python invocation error:"), reply)
}

func TestReply_UnsupportedFramework(t *testing.T) {
	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName:      "m",
		Endpoint:       srv.URL,
		UseLocalModel:  true,
		LocalFramework: "julia",
	})

	assert.Equal(t, "unsupported local framework", d.Reply(context.Background(), "Hi"))
	assert.Equal(t, int64(0), hits.Load()) // no network activity for the unsupported case
}

func TestReply_TransportErrorDiagnostic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	srv.Close()

	d := newDispatcher(config.Config{
		ModelName:        "m",
		Endpoint:         srv.URL,
		OpenAICompatible: true,
	})

	reply := d.Reply(context.Background(), "Hi")
	assert.True(t, strings.HasPrefix(reply, "inference error:"), reply)
}

func TestReply_StatelessAcrossCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text":"same"}`))
	}))
	t.Cleanup(srv.Close)

	d := newDispatcher(config.Config{
		ModelName: "m",
		Endpoint:  srv.URL,
	})

	first := d.Reply(context.Background(), "Hi")
	second := d.Reply(context.Background(), "Hi")

	assert.Equal(t, "same", first)
	assert.Equal(t, first, second)
}
