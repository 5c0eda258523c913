// Package apt wraps the Debian package manager for the install-deps step.
//
// We shell out to apt-get rather than binding libapt because the step
// needs exactly two operations (update, install) and apt-get's CLI
// behavior is the stable contract on Debian-based systems. All failures
// are wrapped in model.CLIError with ExitAptError.
package apt

import (
	"context"
	"fmt"
	"strings"

	"emacsup/internal/model"
	"emacsup/internal/shell"
)

// BuildDeps is the package set required to build Emacs with the default
// configure options on a current Debian/Ubuntu. Features removed via
// --without-* may leave some of these unused, which is harmless.
var BuildDeps = []string{
	"autoconf",
	"build-essential",
	"gnutls-bin",
	"libgccjit-14-dev",
	"libgif-dev",
	"libgnutls28-dev",
	"libgtk-3-dev",
	"libjansson-dev",
	"libjpeg-dev",
	"libmagickwand-dev",
	"libncurses-dev",
	"libtree-sitter-dev",
	"libwebkit2gtk-4.1-dev",
	"libxpm-dev",
	"mailutils",
	"texinfo",
}

// Manager provides package-manager operations by invoking apt-get
// through the injected runner. It is stateless; the struct exists as a
// receiver so callers hold one wired value instead of free functions.
type Manager struct {
	run shell.Runner
}

// NewManager creates a Manager that executes apt-get via run.
func NewManager(run shell.Runner) *Manager {
	return &Manager{run: run}
}

// Update refreshes the package index (`sudo apt-get update`).
func (m *Manager) Update(ctx context.Context) error {
	if err := m.run.Run(ctx, "", "sudo", "apt-get", "update"); err != nil {
		return model.WrapCLIError(model.ExitAptError, "apt-get update failed", err)
	}
	return nil
}

// Install installs the given packages non-interactively. apt-get treats
// already-installed packages as satisfied, which keeps the step
// idempotent across re-runs.
func (m *Manager) Install(ctx context.Context, packages ...string) error {
	if len(packages) == 0 {
		return nil
	}

	args := append([]string{"apt-get", "install", "-y"}, packages...)
	if err := m.run.Run(ctx, "", "sudo", args...); err != nil {
		return model.WrapCLIError(model.ExitAptError,
			fmt.Sprintf("apt-get install failed for: %s", strings.Join(packages, " ")), err)
	}
	return nil
}
