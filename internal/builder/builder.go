// Package builder implements the step actions of the build pipeline:
// dependency installation, stopping a running Emacs, uninstalling a
// previous build, fetching the source, configure+make, install, and the
// two post-install desktop-entry fixes.
//
// The Builder holds the immutable run configuration and the runner all
// side effects go through. It declares the pipeline steps in their fixed
// order; the conditional fix-xwidgets step is appended by the CLI layer
// after the prerequisite check (see webkit.go).
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gookit/color"

	"emacsup/internal/apt"
	"emacsup/internal/model"
	"emacsup/internal/pipeline"
	"emacsup/internal/shell"
	"emacsup/internal/source"
)

// Builder carries the run configuration into the step actions.
type Builder struct {
	cfg model.BuildConfig
	run shell.Runner
	apt *apt.Manager
	src *source.Fetcher
}

// New creates a Builder for the given configuration. All external
// commands of every step flow through run.
func New(cfg model.BuildConfig, run shell.Runner) *Builder {
	return &Builder{
		cfg: cfg,
		run: run,
		apt: apt.NewManager(run),
		src: source.NewFetcher(run),
	}
}

// Steps returns the declared pipeline steps in execution order.
// fix-xwidgets is intentionally absent: it only exists when the
// prerequisite check appends it.
func (b *Builder) Steps() []pipeline.Step {
	return []pipeline.Step{
		{
			Name:        "install-deps",
			Description: "install the build dependency packages via apt-get",
			Action:      b.InstallDeps,
		},
		{
			Name:        "stop-emacs",
			Description: "stop a running Emacs before replacing it",
			Action:      b.StopEmacs,
		},
		{
			Name:        "uninstall-previous",
			Description: "make uninstall the previous build, if one exists",
			Action:      b.UninstallPrevious,
		},
		{
			Name:        "fetch-source",
			Description: "clone or update the Emacs source checkout",
			Action:      b.FetchSource,
		},
		{
			Name:        "build",
			Description: "run autogen.sh, configure, and make",
			Action:      b.Build,
		},
		{
			Name:        "install",
			Description: "install the build (sudo make install)",
			Action:      b.Install,
		},
		{
			Name:        "fix-desktop",
			Description: "point the desktop entry at the installed icon",
			Action:      b.FixDesktop,
		},
	}
}

// XwidgetsFixStep returns the conditionally appended step that works
// around the WebKitGTK compositing crash.
func (b *Builder) XwidgetsFixStep() pipeline.Step {
	return pipeline.Step{
		Name:        "fix-xwidgets",
		Description: "disable WebKit compositing in the desktop entry (xwidgets crash workaround)",
		Action:      b.FixXwidgets,
	}
}

// ConfigureArgs returns the full argument list for configure: the
// prefix followed by the merged option set.
func (b *Builder) ConfigureArgs() []string {
	return append([]string{"--prefix=" + b.cfg.Prefix}, b.cfg.ConfigureOptions...)
}

// InstallDeps refreshes the package index and installs the build
// dependencies. apt-get skips packages that are already current, so the
// step is idempotent.
func (b *Builder) InstallDeps(ctx context.Context) error {
	if err := b.apt.Update(ctx); err != nil {
		return err
	}
	return b.apt.Install(ctx, apt.BuildDeps...)
}

// StopEmacs stops a running Emacs instance: first the user systemd
// service, then any remaining process. Neither command failing is an
// error — no running Emacs is the common case on a first install.
func (b *Builder) StopEmacs(ctx context.Context) error {
	if err := b.run.Run(ctx, "", "systemctl", "--user", "stop", "emacs.service"); err != nil {
		color.Gray.Println("   no emacs user service to stop")
	}
	if err := b.run.Run(ctx, "", "pkill", "-x", "emacs"); err != nil {
		// pkill exits 1 when nothing matched.
		color.Gray.Println("   no running emacs process")
	}
	return nil
}

// UninstallPrevious removes a previously installed build by running
// `sudo make uninstall` in the source tree. Without a configured build
// tree there is nothing to uninstall and the step succeeds with a note.
func (b *Builder) UninstallPrevious(ctx context.Context) error {
	if !b.hasBuildTree() {
		color.Gray.Printf("   no previous build tree in %s, nothing to uninstall\n", b.cfg.SrcDir)
		return nil
	}
	if err := b.run.Run(ctx, b.cfg.SrcDir, "sudo", "make", "uninstall"); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "make uninstall failed", err)
	}
	return nil
}

// FetchSource clones the repository on first run and fast-forwards the
// requested branch afterwards.
func (b *Builder) FetchSource(ctx context.Context) error {
	return b.src.Sync(ctx, b.cfg.RepoURL, b.cfg.Branch, b.cfg.SrcDir)
}

// Build runs autogen.sh, configure with the merged options, and
// make -j<jobs> in the source tree. The checkout must exist; when
// fetch-source was skipped and it does not, the run aborts with a
// distinct exit code pointing at the missing directory.
func (b *Builder) Build(ctx context.Context) error {
	if !b.src.Exists(b.cfg.SrcDir) {
		return model.NewCLIError(model.ExitSourceMissing,
			fmt.Sprintf("source directory %q does not exist; run the fetch-source step first", b.cfg.SrcDir))
	}

	if err := b.run.Run(ctx, b.cfg.SrcDir, "./autogen.sh"); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "autogen.sh failed", err)
	}
	if err := b.run.Run(ctx, b.cfg.SrcDir, "./configure", b.ConfigureArgs()...); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "configure failed", err)
	}
	if err := b.run.Run(ctx, b.cfg.SrcDir, "make", fmt.Sprintf("-j%d", b.cfg.Jobs)); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "make failed", err)
	}
	return nil
}

// Install installs the compiled build under the prefix.
func (b *Builder) Install(ctx context.Context) error {
	if !b.hasBuildTree() {
		return model.NewCLIError(model.ExitSourceMissing,
			fmt.Sprintf("no build tree in %q; run the build step first", b.cfg.SrcDir))
	}
	if err := b.run.Run(ctx, b.cfg.SrcDir, "sudo", "make", "install"); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "make install failed", err)
	}
	return nil
}

// FixDesktop rewrites the Icon line of the installed emacs.desktop to
// the absolute path of the installed scalable icon. Desktop
// environments otherwise resolve "emacs" against the theme and show a
// stale distribution icon next to the fresh build.
func (b *Builder) FixDesktop(ctx context.Context) error {
	return b.patchDesktopEntry(ctx, func(content string) string {
		return PatchIcon(content, b.cfg.IconPath())
	})
}

// FixXwidgets prefixes the Exec lines of the installed emacs.desktop
// with WEBKIT_DISABLE_COMPOSITING_MODE=1. Affected WebKitGTK versions
// crash Emacs xwidgets sessions when compositing is on.
func (b *Builder) FixXwidgets(ctx context.Context) error {
	return b.patchDesktopEntry(ctx, PatchExecEnv)
}

// patchDesktopEntry reads the installed desktop entry, applies the
// transformation, and writes it back. The file is owned by root under
// the usual prefixes, so a direct write falls back to sudo cp from a
// temp file.
func (b *Builder) patchDesktopEntry(ctx context.Context, transform func(string) string) error {
	path := b.cfg.DesktopEntryPath()

	raw, err := os.ReadFile(path)
	if err != nil {
		return model.WrapCLIError(model.ExitBuildError,
			fmt.Sprintf("cannot read desktop entry %q", path), err)
	}

	patched := transform(string(raw))
	if patched == string(raw) {
		color.Gray.Printf("   %s already patched\n", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(patched), 0o644); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrPermission) {
		return model.WrapCLIError(model.ExitBuildError,
			fmt.Sprintf("cannot write desktop entry %q", path), err)
	}

	tmp, err := os.CreateTemp("", "emacsup-desktop-*.desktop")
	if err != nil {
		return model.WrapCLIError(model.ExitBuildError, "cannot create temp file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(patched); err != nil {
		_ = tmp.Close()
		return model.WrapCLIError(model.ExitBuildError, "cannot write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return model.WrapCLIError(model.ExitBuildError, "cannot write temp file", err)
	}

	if err := b.run.Run(ctx, "", "sudo", "cp", tmp.Name(), path); err != nil {
		return model.WrapCLIError(model.ExitBuildError,
			fmt.Sprintf("cannot install patched desktop entry %q", path), err)
	}
	return nil
}

func (b *Builder) hasBuildTree() bool {
	_, err := os.Stat(filepath.Join(b.cfg.SrcDir, "Makefile"))
	return err == nil
}
