// Package subprocess provides the requester that shells out to an external
// inference helper. The helper is invoked as
//
//	<interpreter> <script> <prompt>
//
// and its trimmed stdout is the reply.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"

	"github.com/soratani/nekochat/pkg/backends/backend"
)

// SpawnError reports that the helper process could not be started at all,
// e.g. a missing interpreter.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawn helper: %v", e.Err) }

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a helper run that started but exited non-zero. The
// helper's stderr is carried for the diagnostic.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("helper exited with code %d: %s", e.Code, strings.TrimSpace(e.Stderr))
}

// Result holds the outcome of one helper invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

var _ backend.Requester = (*Runner)(nil)

// Runner spawns the inference helper. The zero value is not usable; both
// fields must be set.
type Runner struct {
	Interpreter string // Program that runs the helper (e.g. "python").
	ScriptPath  string // Path to the helper script.
}

// New creates a Runner for the given interpreter and helper script.
func New(interpreter, scriptPath string) *Runner {
	return &Runner{Interpreter: interpreter, ScriptPath: scriptPath}
}

// run executes the helper with the given arguments and captures its output.
// The child does not inherit stdin and arguments receive no shell
// interpretation. An error is returned only when the process cannot be
// started; a non-zero exit is reported through Result.
func (r *Runner) run(ctx context.Context, args ...string) (Result, error) {
	cmd := osexec.CommandContext(ctx, r.Interpreter, append([]string{r.ScriptPath}, args...)...) //nolint:gosec // interpreter and script come from trusted config

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *osexec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, &SpawnError{Err: err}
		}

		res.ExitCode = exitErr.ExitCode()
	}

	return res, nil
}

// Generate invokes the helper with the prompt as its single argument. On exit
// code 0 the reply is stdout with surrounding whitespace trimmed; a non-zero
// exit yields an *ExitError.
func (r *Runner) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := r.run(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("subprocess: %w", err)
	}

	if res.ExitCode != 0 {
		return "", fmt.Errorf("subprocess: %w", &ExitError{Code: res.ExitCode, Stderr: res.Stderr})
	}

	return strings.TrimSpace(res.Stdout), nil
}
