// Package sudo handles the elevated-privilege lifetime of a build run.
//
// Several steps (apt-get, make install, the desktop-entry fixes) need
// root. Instead of prompting for a password mid-build — possibly an hour
// into make — the run authenticates once up front and a background
// keep-alive refreshes the sudo timestamp until the pipeline finishes.
// The keep-alive is tied to the run's context, so it stops on normal
// completion, error abort, and interrupt alike.
package sudo

import (
	"context"
	"os"
	"time"

	"emacsup/internal/model"
	"emacsup/internal/shell"
)

// refreshInterval is comfortably below the default sudo timestamp
// timeout of 15 minutes.
const refreshInterval = 4 * time.Minute

// Authenticate validates sudo credentials once (`sudo -v`), prompting
// for a password if needed. Running as root already is a no-op.
func Authenticate(ctx context.Context, run shell.Runner) error {
	if os.Geteuid() == 0 {
		return nil
	}
	if err := run.Run(ctx, "", "sudo", "-v"); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "sudo authentication failed", err)
	}
	return nil
}

// KeepAlive refreshes the sudo timestamp on a fixed interval.
type KeepAlive struct {
	run      shell.Runner
	interval time.Duration
}

// NewKeepAlive creates a KeepAlive using the default refresh interval.
func NewKeepAlive(run shell.Runner) *KeepAlive {
	return &KeepAlive{run: run, interval: refreshInterval}
}

// NewKeepAliveInterval creates a KeepAlive with a custom interval,
// for tests.
func NewKeepAliveInterval(run shell.Runner, interval time.Duration) *KeepAlive {
	return &KeepAlive{run: run, interval: interval}
}

// Run refreshes the timestamp until ctx is cancelled, then returns nil.
// It is designed to run in an errgroup alongside the pipeline: the
// pipeline goroutine cancels the shared context when it finishes, and
// Wait then returns the pipeline's error, never the keep-alive's.
//
// Refresh uses `sudo -nv` (non-interactive); a failed refresh is
// ignored since the worst case is a password prompt at the next
// privileged step.
func (k *KeepAlive) Run(ctx context.Context) error {
	if os.Geteuid() == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = k.run.Run(ctx, "", "sudo", "-nv")
		}
	}
}
