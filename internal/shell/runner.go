// Package shell provides the external-command abstraction used by every
// step action.
//
// All side effects of the pipeline flow through a Runner: apt-get, git,
// autogen/configure/make, systemctl, pkill, sudo. Step packages receive
// the interface rather than calling os/exec directly, which keeps their
// tests hermetic and lets dry-run substitute a recorder that performs
// nothing.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Runner executes external commands on behalf of step actions.
type Runner interface {
	// Run executes name with args in dir (empty dir means the current
	// working directory), streaming output to the process streams.
	// A non-zero exit status is returned as an error.
	Run(ctx context.Context, dir, name string, args ...string) error

	// Output executes name with args in dir and returns trimmed stdout.
	// Stderr is captured and included in the error on failure.
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
}

// Exec is the production Runner backed by os/exec. Long-running build
// commands (make, configure) inherit the process stdout/stderr so the
// operator sees their output live.
type Exec struct {
	// Stdout and Stderr receive command output for Run. They default
	// to the process streams when nil.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec creates a Runner that executes commands for real, streaming
// their output to the process stdout/stderr.
func NewExec() *Exec {
	return &Exec{}
}

// Run implements Runner. Commands are connected to stdin as well so
// that sudo password prompts work when invoked from a terminal.
func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 — argv assembled internally
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.stdout()
	cmd.Stderr = e.stderr()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", Format(name, args...), err)
	}
	return nil
}

// Output implements Runner. Unlike Run, stdout is captured instead of
// streamed, and stderr is folded into the returned error.
func (e *Exec) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 — argv assembled internally
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s failed: %s: %w", Format(name, args...), msg, err)
		}
		return "", fmt.Errorf("%s failed: %w", Format(name, args...), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (e *Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

// Recorder is a Runner that records every invocation without executing
// anything. Outputs maps a formatted command line (see Format) to the
// string Output should return; Fail maps a command line to the error
// both methods should return.
//
// Recorder backs the unit tests of the step packages. It is safe for
// concurrent use.
type Recorder struct {
	mu sync.Mutex

	// Commands holds the formatted command lines in invocation order.
	Commands []string

	// Outputs provides canned stdout for Output calls.
	Outputs map[string]string

	// Fail provides canned errors, keyed like Outputs.
	Fail map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Outputs: make(map[string]string),
		Fail:    make(map[string]error),
	}
}

// Run implements Runner by recording the command line.
func (r *Recorder) Run(ctx context.Context, dir, name string, args ...string) error {
	line := r.record(name, args...)
	return r.Fail[line]
}

// Output implements Runner by recording the command line and returning
// the canned output, if any.
func (r *Recorder) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	line := r.record(name, args...)
	if err := r.Fail[line]; err != nil {
		return "", err
	}
	return r.Outputs[line], nil
}

func (r *Recorder) record(name string, args ...string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := Format(name, args...)
	r.Commands = append(r.Commands, line)
	return line
}

// Format renders a command invocation as a single display line,
// the form used for Recorder keys and error messages.
func Format(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
