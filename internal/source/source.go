// Package source manages the Emacs git checkout for the fetch-source step.
//
// We shell out to `git` rather than using a Go git library because the
// checkout is also operated on by make and by the operator directly, and
// full CLI compatibility (hooks, config, credential helpers) matters
// more than avoiding a subprocess. All git failures are wrapped in
// model.CLIError with ExitGitError.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emacsup/internal/model"
	"emacsup/internal/shell"
)

// Fetcher clones or updates the source checkout via the git CLI.
type Fetcher struct {
	run shell.Runner
}

// NewFetcher creates a Fetcher that executes git via run.
func NewFetcher(run shell.Runner) *Fetcher {
	return &Fetcher{run: run}
}

// Exists reports whether dir already holds a git checkout.
// A directory without .git is treated as absent; Sync will refuse to
// clone over it rather than guess what it contains.
func (f *Fetcher) Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// Sync makes dir an up-to-date checkout of repoURL at branch.
//
// When the checkout does not exist yet, it is cloned; otherwise the
// requested branch is checked out and fast-forwarded from origin. A
// diverged local branch fails the step — the tool never rewrites
// history the operator may have created.
func (f *Fetcher) Sync(ctx context.Context, repoURL, branch, dir string) error {
	if !f.Exists(dir) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if occupied, err := dirNotEmpty(dir); err == nil && occupied {
				return model.NewCLIError(model.ExitGitError,
					fmt.Sprintf("source directory %q exists but is not a git checkout", dir))
			}
		}
		return f.clone(ctx, repoURL, branch, dir)
	}
	return f.update(ctx, branch, dir)
}

func (f *Fetcher) clone(ctx context.Context, repoURL, branch, dir string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repoURL, dir)

	if err := f.run.Run(ctx, "", "git", args...); err != nil {
		return model.WrapCLIError(model.ExitGitError,
			fmt.Sprintf("failed to clone %s", repoURL), err)
	}
	return nil
}

func (f *Fetcher) update(ctx context.Context, branch, dir string) error {
	if err := f.git(ctx, dir, "fetch", "origin"); err != nil {
		return err
	}
	if branch != "" {
		if err := f.git(ctx, dir, "checkout", branch); err != nil {
			return err
		}
	}
	// --ff-only: never merge or rebase operator work behind their back.
	return f.git(ctx, dir, "pull", "--ff-only")
}

// git runs a git subcommand against the checkout at dir. The -C flag is
// handled by git itself, which avoids changing the process working
// directory.
func (f *Fetcher) git(ctx context.Context, dir string, args ...string) error {
	fullArgs := append([]string{"-C", dir}, args...)
	if err := f.run.Run(ctx, "", "git", fullArgs...); err != nil {
		return model.WrapCLIError(model.ExitGitError,
			fmt.Sprintf("git %s failed", strings.Join(args, " ")), err)
	}
	return nil
}

func dirNotEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
