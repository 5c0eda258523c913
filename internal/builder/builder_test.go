package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emacsup/internal/model"
	"emacsup/internal/shell"
)

// testConfig returns a BuildConfig rooted in a temp directory so the
// filesystem probes (build tree, desktop entry) are hermetic.
func testConfig(t *testing.T) model.BuildConfig {
	t.Helper()
	return model.BuildConfig{
		Prefix:           filepath.Join(t.TempDir(), "prefix"),
		RepoURL:          model.DefaultRepoURL,
		Branch:           "master",
		SrcDir:           filepath.Join(t.TempDir(), "emacs"),
		Jobs:             4,
		ConfigureOptions: []string{"--with-json", "--with-x-toolkit=gtk3"},
	}
}

// makeCheckout creates enough of a git checkout under cfg.SrcDir for
// source.Fetcher.Exists to accept it.
func makeCheckout(t *testing.T, cfg model.BuildConfig) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.SrcDir, ".git"), 0o755))
}

// makeBuildTree adds a Makefile, marking a configured build tree.
func makeBuildTree(t *testing.T, cfg model.BuildConfig) {
	t.Helper()
	makeCheckout(t, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SrcDir, "Makefile"), []byte("all:\n"), 0o644))
}

// TestSteps_DeclaredOrder pins the step sequence the selection flags
// and the documentation refer to. fix-xwidgets is absent: it only
// exists after the prerequisite check appends it.
func TestSteps_DeclaredOrder(t *testing.T) {
	b := New(testConfig(t), shell.NewRecorder())

	var names []string
	for _, s := range b.Steps() {
		names = append(names, s.Name)
		assert.NotNil(t, s.Action, "step %s must have an action", s.Name)
		assert.NotEmpty(t, s.Description)
	}

	assert.Equal(t, []string{
		"install-deps",
		"stop-emacs",
		"uninstall-previous",
		"fetch-source",
		"build",
		"install",
		"fix-desktop",
	}, names)
}

// TestConfigureArgs verifies the prefix leads the argument list,
// followed by the merged options in order.
func TestConfigureArgs(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg, shell.NewRecorder())

	args := b.ConfigureArgs()
	require.NotEmpty(t, args)
	assert.Equal(t, "--prefix="+cfg.Prefix, args[0])
	assert.Equal(t, []string{"--with-json", "--with-x-toolkit=gtk3"}, args[1:])
}

// TestStopEmacs_ToleratesNothingRunning verifies the step succeeds when
// neither the user service nor a process exists — the common case on a
// first install.
func TestStopEmacs_ToleratesNothingRunning(t *testing.T) {
	rec := shell.NewRecorder()
	rec.Fail["systemctl --user stop emacs.service"] = errors.New("unit not loaded")
	rec.Fail["pkill -x emacs"] = errors.New("exit status 1")

	b := New(testConfig(t), rec)
	require.NoError(t, b.StopEmacs(context.Background()))

	assert.Equal(t, []string{
		"systemctl --user stop emacs.service",
		"pkill -x emacs",
	}, rec.Commands)
}

// TestUninstallPrevious_NoBuildTree verifies the step is a successful
// no-op without a configured build tree.
func TestUninstallPrevious_NoBuildTree(t *testing.T) {
	rec := shell.NewRecorder()
	b := New(testConfig(t), rec)

	require.NoError(t, b.UninstallPrevious(context.Background()))
	assert.Empty(t, rec.Commands)
}

// TestUninstallPrevious_RunsMakeUninstall verifies the uninstall runs
// in the source tree when one exists.
func TestUninstallPrevious_RunsMakeUninstall(t *testing.T) {
	cfg := testConfig(t)
	makeBuildTree(t, cfg)

	rec := shell.NewRecorder()
	b := New(cfg, rec)

	require.NoError(t, b.UninstallPrevious(context.Background()))
	assert.Equal(t, []string{"sudo make uninstall"}, rec.Commands)
}

// TestBuild_MissingSource verifies the build step fails with the
// source-missing exit code when fetch-source was skipped and the
// checkout does not exist.
func TestBuild_MissingSource(t *testing.T) {
	rec := shell.NewRecorder()
	b := New(testConfig(t), rec)

	err := b.Build(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitSourceMissing, cliErr.Code)
	assert.Empty(t, rec.Commands, "no command may run against a missing checkout")
}

// TestBuild_CommandSequence verifies the autogen/configure/make
// sequence and the configure argument assembly.
func TestBuild_CommandSequence(t *testing.T) {
	cfg := testConfig(t)
	makeCheckout(t, cfg)

	rec := shell.NewRecorder()
	b := New(cfg, rec)

	require.NoError(t, b.Build(context.Background()))
	assert.Equal(t, []string{
		"./autogen.sh",
		"./configure --prefix=" + cfg.Prefix + " --with-json --with-x-toolkit=gtk3",
		"make -j4",
	}, rec.Commands)
}

// TestBuild_ConfigureFailureAborts verifies a configure failure stops
// the step before make and carries the build exit code.
func TestBuild_ConfigureFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	makeCheckout(t, cfg)

	rec := shell.NewRecorder()
	rec.Fail["./configure --prefix="+cfg.Prefix+" --with-json --with-x-toolkit=gtk3"] = errors.New("exit status 1")

	b := New(cfg, rec)
	err := b.Build(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBuildError, cliErr.Code)
	assert.NotContains(t, rec.Commands, "make -j4")
}

// TestInstall verifies the privileged install command and the guard
// against installing without a build tree.
func TestInstall(t *testing.T) {
	cfg := testConfig(t)
	rec := shell.NewRecorder()
	b := New(cfg, rec)

	err := b.Install(context.Background())
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitSourceMissing, cliErr.Code)

	makeBuildTree(t, cfg)
	require.NoError(t, b.Install(context.Background()))
	assert.Equal(t, []string{"sudo make install"}, rec.Commands)
}

// writeDesktopEntry installs a sample desktop entry under the config's
// prefix, as make install would.
func writeDesktopEntry(t *testing.T, cfg model.BuildConfig) string {
	t.Helper()
	path := cfg.DesktopEntryPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sampleDesktop), 0o644))
	return path
}

// TestFixDesktop verifies the installed desktop entry is rewritten in
// place with the prefix-local icon path. The temp prefix is writable,
// so no privileged fallback is needed.
func TestFixDesktop(t *testing.T) {
	cfg := testConfig(t)
	path := writeDesktopEntry(t, cfg)

	rec := shell.NewRecorder()
	b := New(cfg, rec)
	require.NoError(t, b.FixDesktop(context.Background()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Icon="+cfg.IconPath())
	assert.Empty(t, rec.Commands, "a writable entry needs no sudo fallback")
}

// TestFixXwidgets verifies the compositing workaround lands on the Exec
// lines and that a second application changes nothing.
func TestFixXwidgets(t *testing.T) {
	cfg := testConfig(t)
	path := writeDesktopEntry(t, cfg)

	b := New(cfg, shell.NewRecorder())
	require.NoError(t, b.FixXwidgets(context.Background()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Exec=env WEBKIT_DISABLE_COMPOSITING_MODE=1 emacs %F")

	require.NoError(t, b.FixXwidgets(context.Background()))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(again))
}

// TestFixDesktop_MissingEntry verifies a missing desktop entry is a
// build error, since it means install did not run under this prefix.
func TestFixDesktop_MissingEntry(t *testing.T) {
	b := New(testConfig(t), shell.NewRecorder())

	err := b.FixDesktop(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitBuildError, cliErr.Code)
}

// TestXwidgetsFixStep verifies the conditionally appended step is
// well-formed.
func TestXwidgetsFixStep(t *testing.T) {
	b := New(testConfig(t), shell.NewRecorder())
	step := b.XwidgetsFixStep()

	assert.Equal(t, "fix-xwidgets", step.Name)
	assert.NotNil(t, step.Action)
}
