// Package config loads the optional emacsup config file.
//
// The file lives at $XDG_CONFIG_HOME/emacsup/config.jsonc (falling back
// to ~/.config) and supplies defaults for the run flags. JSONC (JSON
// with comments) is accepted so the file can document its own option
// choices; github.com/tidwall/jsonc strips comments before the standard
// encoding/json parse.
//
// Precedence is strict: explicit flags > config file > built-in
// defaults. An absent file is not an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"emacsup/internal/model"
)

// File mirrors the config file structure. Every field is optional;
// zero values mean "not set" and leave the flag default untouched.
type File struct {
	// Prefix is the installation prefix (configure --prefix).
	Prefix string `json:"prefix,omitempty"`

	// Repo is the git remote to clone the source from.
	Repo string `json:"repo,omitempty"`

	// Branch is the branch to check out.
	Branch string `json:"branch,omitempty"`

	// Src is the source checkout directory.
	Src string `json:"src,omitempty"`

	// Jobs is the make parallelism.
	Jobs int `json:"jobs,omitempty"`

	// Options are configure-option overrides, merged before any
	// overrides given on the command line.
	Options []string `json:"options,omitempty"`
}

// DefaultPath returns the standard config file location, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "emacsup", "config.jsonc")
}

// Load reads and parses the config file at path. A missing file returns
// (nil, nil); a present but malformed file is a hard error, since
// silently ignoring it would run a build with settings the operator
// believes they changed.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot read config file %q", path), err)
	}

	var f File
	if err := json.Unmarshal(jsonc.ToJSON(raw), &f); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot parse config file %q", path), err)
	}
	return &f, nil
}

// Apply fills unset fields of cfg from the file values and returns the
// file's extra configure options. Fields the caller already set (from
// flags) are left untouched.
func (f *File) Apply(cfg *model.BuildConfig) []string {
	if f == nil {
		return nil
	}
	if cfg.Prefix == "" && f.Prefix != "" {
		cfg.Prefix = f.Prefix
	}
	if cfg.RepoURL == "" && f.Repo != "" {
		cfg.RepoURL = f.Repo
	}
	if cfg.Branch == "" && f.Branch != "" {
		cfg.Branch = f.Branch
	}
	if cfg.SrcDir == "" && f.Src != "" {
		cfg.SrcDir = expandHome(f.Src)
	}
	if cfg.Jobs == 0 && f.Jobs > 0 {
		cfg.Jobs = f.Jobs
	}
	return f.Options
}

// expandHome resolves a leading ~/ against the user's home directory,
// since the config file is hand-written and tilde paths are natural
// there.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
