package builder

import (
	"context"
	"strconv"
	"strings"

	"emacsup/internal/shell"
)

// webkitModule is the pkg-config module name of the WebKitGTK
// development package the xwidgets build links against.
const webkitModule = "webkit2gtk-4.1"

// WebKitVersion returns the installed WebKitGTK version as reported by
// pkg-config, or an error when the development package is absent.
func WebKitVersion(ctx context.Context, run shell.Runner) (string, error) {
	return run.Output(ctx, "", "pkg-config", "--modversion", webkitModule)
}

// NeedsCompositingFix reports whether the given WebKitGTK version is
// affected by the compositing crash in Emacs xwidgets sessions.
// The DMA-BUF renderer that triggers it shipped in 2.42; every release
// since is affected, hence the open-ended upper bound.
func NeedsCompositingFix(version string) bool {
	major, minor, ok := parseVersion(version)
	if !ok {
		// Unparseable version: assume affected, the workaround is
		// harmless on unaffected versions.
		return true
	}
	if major != 2 {
		return major > 2
	}
	return minor >= 42
}

// parseVersion extracts the leading major.minor pair from a version
// string like "2.44.1".
func parseVersion(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
