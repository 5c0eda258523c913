package builder

import (
	"strings"
)

// compositingEnv is the WebKitGTK switch that avoids the xwidgets
// compositing crash.
const compositingEnv = "WEBKIT_DISABLE_COMPOSITING_MODE=1"

// PatchIcon returns the desktop-entry content with every Icon line
// pointed at iconPath. Content without an Icon line is returned
// unchanged.
func PatchIcon(content, iconPath string) string {
	return mapLines(content, func(line string) string {
		if strings.HasPrefix(line, "Icon=") {
			return "Icon=" + iconPath
		}
		return line
	})
}

// PatchExecEnv returns the desktop-entry content with every Exec line
// prefixed by `env WEBKIT_DISABLE_COMPOSITING_MODE=1`. Lines that
// already carry the variable are left alone, so applying the fix twice
// is a no-op.
func PatchExecEnv(content string) string {
	return mapLines(content, func(line string) string {
		rest, ok := strings.CutPrefix(line, "Exec=")
		if !ok || strings.Contains(rest, compositingEnv) {
			return line
		}
		return "Exec=env " + compositingEnv + " " + rest
	})
}

// mapLines applies f to each line, preserving the original line
// structure including a trailing newline.
func mapLines(content string, f func(string) string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = f(line)
	}
	return strings.Join(lines, "\n")
}
