// Package model defines the domain types for the emacsup CLI.
//
// All entities in this package are pure data structures with no external
// dependencies. They describe a single build run: where the Emacs source
// lives, where the result is installed, how the pipeline executes
// (interactive / non-interactive / dry-run), and which exit code each
// failure class maps to.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RunMode controls how the step pipeline executes.
//
//	ModeInteractive    — confirm each step on stdin before running it
//	ModeNonInteractive — run every selected step without asking
//	ModeDryRun         — report the step sequence, perform no side effects
type RunMode string

const (
	// ModeInteractive prompts the operator before each step.
	// An empty answer defaults to yes.
	ModeInteractive RunMode = "interactive"

	// ModeNonInteractive runs all selected steps unconditionally.
	ModeNonInteractive RunMode = "non-interactive"

	// ModeDryRun reports the steps that would run and the merged
	// configure options, without executing any external command.
	ModeDryRun RunMode = "dry-run"
)

// String returns the string representation of RunMode.
// This method satisfies the fmt.Stringer interface.
func (m RunMode) String() string {
	return string(m)
}

// IsValid checks whether the RunMode value is one of the
// predefined valid modes.
func (m RunMode) IsValid() bool {
	switch m {
	case ModeInteractive, ModeNonInteractive, ModeDryRun:
		return true
	default:
		return false
	}
}

// ParseRunMode converts a string to a RunMode.
// Returns an error if the string does not match any valid mode.
func ParseRunMode(s string) (RunMode, error) {
	mode := RunMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid run mode: %q (valid: interactive, non-interactive, dry-run)", s)
	}
	return mode, nil
}

// Default values for a build run. The repository URL is the canonical
// Savannah mirror; the prefix matches the configure default.
const (
	// DefaultRepoURL is the upstream Emacs git repository.
	DefaultRepoURL = "https://git.savannah.gnu.org/git/emacs.git"

	// DefaultPrefix is the installation prefix passed to configure.
	DefaultPrefix = "/usr/local"

	// DefaultBranch is the branch checked out after clone/pull.
	DefaultBranch = "master"
)

// BuildConfig describes one build run. It is assembled by the CLI layer
// from flag values and the optional config file, then passed unchanged to
// the step actions — the pipeline never mutates it.
type BuildConfig struct {
	// Prefix is the installation prefix (configure --prefix).
	Prefix string `json:"prefix"`

	// RepoURL is the git remote the source is cloned from.
	RepoURL string `json:"repoUrl"`

	// Branch is the branch checked out in the source directory.
	Branch string `json:"branch"`

	// SrcDir is the absolute path of the source checkout.
	SrcDir string `json:"srcDir"`

	// Jobs is the make parallelism (make -j<Jobs>).
	Jobs int `json:"jobs"`

	// ConfigureOptions is the final merged configure option list,
	// excluding --prefix which is derived from Prefix.
	ConfigureOptions []string `json:"configureOptions,omitempty"`
}

// Validate checks that the BuildConfig field values are usable before
// any step runs. It enforces absolute paths so that steps executing in
// different working directories cannot disagree about locations.
func (c *BuildConfig) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("installation prefix must not be empty")
	}
	if !filepath.IsAbs(c.Prefix) {
		return fmt.Errorf("installation prefix %q must be an absolute path", c.Prefix)
	}
	if c.RepoURL == "" {
		return fmt.Errorf("repository URL must not be empty")
	}
	if c.SrcDir == "" {
		return fmt.Errorf("source directory must not be empty")
	}
	if !filepath.IsAbs(c.SrcDir) {
		return fmt.Errorf("source directory %q must be an absolute path", c.SrcDir)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

// DesktopEntryPath returns the path of the installed emacs.desktop file
// under the configured prefix. The post-install fixes patch this file
// in place.
func (c *BuildConfig) DesktopEntryPath() string {
	return filepath.Join(c.Prefix, "share", "applications", "emacs.desktop")
}

// IconPath returns the path of the installed scalable Emacs icon under
// the configured prefix.
func (c *BuildConfig) IconPath() string {
	return filepath.Join(c.Prefix, "share", "icons", "hicolor", "scalable", "apps", "emacs.svg")
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine the outcome of a run.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsageError indicates invalid or conflicting flags. Usage
	// errors are reported before any side effect is performed.
	ExitUsageError ExitCode = 2

	// ExitAptError indicates a package-manager operation failed.
	ExitAptError ExitCode = 3

	// ExitGitError indicates a git operation (clone/pull/checkout) failed.
	ExitGitError ExitCode = 4

	// ExitBuildError indicates autogen, configure, make, or
	// make install exited non-zero.
	ExitBuildError ExitCode = 5

	// ExitSourceMissing indicates a step required the source checkout
	// to exist but an earlier step that creates it was skipped.
	ExitSourceMissing ExitCode = 6

	// ExitUserCancelled indicates the operator cancelled an
	// interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
