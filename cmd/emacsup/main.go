// Package main is the entry point for the emacsup CLI.
//
// This binary builds and installs GNU Emacs from source on Debian-based
// systems. It delegates all functionality to the internal/cli package,
// which defines the cobra commands.
package main

import (
	"emacsup/internal/cli"
)

// version, commit, and date are set at build time via ldflags and
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package. This
	// decouples the build system (ldflags) from the CLI framework
	// (cobra), keeping main.go minimal.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
