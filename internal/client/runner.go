// Package client wraps the external node client and contract compiler
// binaries that tzcall drives.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	tzcall "github.com/branched-services/go-tzcall"
)

// ErrCommandFailed is returned when a query command exits non-zero.
var ErrCommandFailed = errors.New("client: command failed")

// CommandError reports a failed query together with its output.
type CommandError struct {
	Command []string
	Output  tzcall.Output
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Output.Combined())
	if msg == "" {
		return fmt.Sprintf("%v: %s", ErrCommandFailed, e.Command[0])
	}
	return fmt.Sprintf("%v: %s: %s", ErrCommandFailed, e.Command[0], msg)
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

// Runner executes an external program. A non-zero exit status is reported
// through Output.Failed; the error is reserved for programs that could not
// be started or were cancelled.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (tzcall.Output, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Run starts name and waits for it to exit or ctx to end.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (tzcall.Output, error) {
	if _, err := exec.LookPath(name); err != nil {
		return tzcall.Output{}, fmt.Errorf("client: %s not found in PATH: %w", name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running command", "cmd", name, "args", len(args))
	err := cmd.Run()
	out := tzcall.Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("client: %s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		out.Failed = true
		log.Debug("Command failed", "cmd", name, "status", exitErr.ExitCode())
	case err != nil:
		return out, fmt.Errorf("client: run %s: %w", name, err)
	}
	return out, nil
}

// PrintRunner writes each command line to W instead of running it.
type PrintRunner struct {
	W io.Writer
}

// Run prints the quoted command and reports an empty, successful output.
func (r PrintRunner) Run(_ context.Context, name string, args ...string) (tzcall.Output, error) {
	_, err := fmt.Fprintln(r.W, FormatCommand(append([]string{name}, args...)))
	return tzcall.Output{}, err
}

// FormatCommand renders argv as a shell command line.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=%@+,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
