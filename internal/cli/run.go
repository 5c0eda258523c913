// Package cli — run.go implements the "emacsup run" command.
//
// run is the primary operation: it resolves the build configuration
// (flags > config file > built-in defaults), merges the configure
// options, performs the xwidgets prerequisite check, filters the step
// pipeline, and executes it. The sudo keep-alive runs alongside the
// pipeline in an errgroup so it is cancelled however the run ends.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"emacsup/internal/builder"
	"emacsup/internal/config"
	"emacsup/internal/configure"
	"emacsup/internal/model"
	"emacsup/internal/pipeline"
	"emacsup/internal/shell"
	"emacsup/internal/sudo"
)

// runFlags holds the flag values for the run command.
// These are bound to cobra flags in NewRunCommand.
type runFlags struct {
	prefix      string // --prefix: installation prefix
	repo        string // --repo: Emacs git remote
	branch      string // --branch: branch to check out
	src         string // --src: source checkout directory
	jobs        int    // --jobs: make parallelism
	interactive bool   // --interactive: confirm each step
	yes         bool   // --yes: run without asking
	dryRun      bool   // --dry-run: report only, no side effects
	steps       string // --steps: run exactly these steps
	skip        string // --skip: run all but these steps
	options     string // --options: configure option overrides
	configPath  string // --config: config file path
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and install Emacs from source",
		Long: `Run the build pipeline: install dependencies, stop a running Emacs,
uninstall the previous build, fetch the source, configure and compile,
install, and apply the post-install desktop fixes.

Steps can be selected with --steps (run exactly these) or --skip
(run all but these); the two are mutually exclusive. Without --yes or
--interactive, each step is confirmed when stdin is a terminal.

Examples:
  emacsup run
  emacsup run --yes
  emacsup run --dry-run --options --without-xwidgets,--with-imagemagick
  emacsup run --steps fetch-source,build,install
  emacsup run --skip install-deps --prefix ~/.local`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "Installation prefix (default "+model.DefaultPrefix+")")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "Emacs git repository URL (default "+model.DefaultRepoURL+")")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "Branch to check out (default "+model.DefaultBranch+")")
	cmd.Flags().StringVar(&flags.src, "src", "", "Source checkout directory (default ~/src/emacs)")
	cmd.Flags().IntVar(&flags.jobs, "jobs", 0, "Make parallelism (default: number of CPUs)")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "Confirm each step before running it")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Run all selected steps without asking")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report the steps and options without executing anything")
	cmd.Flags().StringVar(&flags.steps, "steps", "", "Comma-separated list of steps to run exclusively")
	cmd.Flags().StringVar(&flags.skip, "skip", "", "Comma-separated list of steps to skip")
	cmd.Flags().StringVar(&flags.options, "options", "", "Comma-separated configure option overrides")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Config file path (default "+"$XDG_CONFIG_HOME/emacsup/config.jsonc)")

	return cmd
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, flags *runFlags) error {
	// Usage errors first, before any side effect.
	if flags.interactive && flags.yes {
		return model.NewCLIError(model.ExitUsageError,
			"--interactive and --yes are mutually exclusive")
	}
	if flags.steps != "" && flags.skip != "" {
		return model.NewCLIError(model.ExitUsageError,
			"--steps and --skip are mutually exclusive")
	}

	runner := shell.NewExec()

	cfg, merged, err := resolveRun(ctx, flags, runner)
	if err != nil {
		return err
	}

	b := builder.New(cfg, runner)
	pipe := pipeline.New(b.Steps()...)

	// Prerequisite check: the xwidgets fix step exists only when the
	// merged options still carry xwidgets and the installed WebKitGTK
	// is an affected version. Augmentation happens before selection
	// filtering so --steps/--skip can address the appended step.
	if _, xwidgets := configure.HasFeature(merged, "xwidgets"); xwidgets {
		version, err := builder.WebKitVersion(ctx, runner)
		switch {
		case err != nil:
			// The check itself never ran against a missing package:
			// resolveRun already dropped xwidgets in that case.
			VerboseLog("webkit version check failed: %v", err)
		case builder.NeedsCompositingFix(version):
			VerboseLog("webkit2gtk %s is affected by the compositing crash, scheduling fix-xwidgets", version)
			pipe.Append(b.XwidgetsFixStep())
		}
	}

	selected, err := pipe.Select(splitList(flags.steps), splitList(flags.skip))
	if err != nil {
		return err
	}

	mode := resolveMode(flags)
	VerboseLog("run mode: %s", mode)

	if mode == model.ModeDryRun {
		color.Bold.Println("dry run — nothing will be executed")
		printConfigureArgs(b.ConfigureArgs())
		return pipe.Run(ctx, selected, pipeline.RunOptions{DryRun: true, Out: os.Stdout})
	}

	// From here on, steps may run privileged commands. Authenticate
	// once, then keep the sudo timestamp fresh for the whole run.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sudo.Authenticate(ctx, runner); err != nil {
		return err
	}

	printConfigureArgs(b.ConfigureArgs())

	var confirm pipeline.ConfirmFunc
	if mode == model.ModeInteractive {
		confirm = newConfirmer(os.Stdin).Confirm
	}

	// The keep-alive lives exactly as long as the pipeline goroutine:
	// it watches a child context that is cancelled when the pipeline
	// returns, and itself returns nil on cancellation, so Wait yields
	// the pipeline's outcome.
	g, gctx := errgroup.WithContext(ctx)
	keepCtx, cancelKeep := context.WithCancel(gctx)
	defer cancelKeep()

	keep := sudo.NewKeepAlive(runner)
	g.Go(func() error {
		return keep.Run(keepCtx)
	})
	g.Go(func() error {
		defer cancelKeep()
		return pipe.Run(gctx, selected, pipeline.RunOptions{Confirm: confirm, Out: os.Stdout})
	})

	if err := g.Wait(); err != nil {
		return err
	}

	color.Success.Printf("Emacs built and installed under %s\n", cfg.Prefix)
	return nil
}

// resolveRun assembles the BuildConfig and the merged configure options
// from flags, the optional config file, and built-in defaults.
// It returns the merged option list alongside the config because the
// xwidgets prerequisite check needs the tagged form, not the rendered
// strings.
func resolveRun(ctx context.Context, flags *runFlags, runner shell.Runner) (model.BuildConfig, []configure.Option, error) {
	configPath := flags.configPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	file, err := config.Load(configPath)
	if err != nil {
		return model.BuildConfig{}, nil, err
	}
	if file != nil {
		VerboseLog("loaded config file %s", configPath)
	}

	cfg := model.BuildConfig{
		Prefix:  flags.prefix,
		RepoURL: flags.repo,
		Branch:  flags.branch,
		SrcDir:  expandPath(flags.src),
		Jobs:    flags.jobs,
	}
	fileOptions := file.Apply(&cfg)

	if cfg.Prefix == "" {
		cfg.Prefix = model.DefaultPrefix
	}
	if cfg.RepoURL == "" {
		cfg.RepoURL = model.DefaultRepoURL
	}
	if cfg.Branch == "" {
		cfg.Branch = model.DefaultBranch
	}
	if cfg.SrcDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return model.BuildConfig{}, nil, model.WrapCLIError(model.ExitGeneralError,
				"cannot determine home directory for the default source path", err)
		}
		cfg.SrcDir = filepath.Join(home, "src", "emacs")
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	// Option merge: defaults, then config-file overrides, then CLI
	// overrides — the later layer wins per feature name.
	fileOverrides := configure.ParseList(strings.Join(fileOptions, ","))
	cliOverrides := configure.ParseList(flags.options)

	merged := configure.Merge(configure.Defaults(), fileOverrides)
	merged = configure.Merge(merged, cliOverrides)

	// Soft prerequisite: xwidgets needs the WebKitGTK development
	// package. When it is absent entirely, warn and build without the
	// feature rather than letting configure fail an hour of work in.
	if _, xwidgets := configure.HasFeature(merged, "xwidgets"); xwidgets {
		if _, err := builder.WebKitVersion(ctx, runner); err != nil {
			color.Warn.Println("xwidgets requested but webkit2gtk-4.1 was not found; building without xwidgets")
			merged = configure.Remove(merged, "xwidgets")
		}
	}

	merged = configure.AugmentForWayland(merged, append(fileOverrides, cliOverrides...), os.Getenv)

	cfg.ConfigureOptions = configure.Strings(merged)
	if err := cfg.Validate(); err != nil {
		return model.BuildConfig{}, nil, model.WrapCLIError(model.ExitUsageError, "invalid configuration", err)
	}

	return cfg, merged, nil
}

// resolveMode picks the run mode: explicit flags win, otherwise
// interactive when stdin is a terminal.
func resolveMode(flags *runFlags) model.RunMode {
	switch {
	case flags.dryRun:
		return model.ModeDryRun
	case flags.yes:
		return model.ModeNonInteractive
	case flags.interactive:
		return model.ModeInteractive
	case term.IsTerminal(int(os.Stdin.Fd())):
		return model.ModeInteractive
	default:
		return model.ModeNonInteractive
	}
}

// printConfigureArgs shows the final configure invocation so the
// operator can verify the merge result before the build starts.
func printConfigureArgs(args []string) {
	color.Bold.Print("configure options: ")
	fmt.Println(strings.Join(args, " "))
}

// splitList splits a comma-separated flag value, dropping empty
// elements.
func splitList(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// expandPath resolves a leading ~/ in a flag value.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
