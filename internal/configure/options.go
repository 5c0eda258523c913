// Package configure implements parsing and merging of Emacs configure
// options.
//
// Options of the form --with-<feature>[=<value>] and --without-<feature>
// are parsed into a tagged Option struct so that merging can match by
// feature name instead of comparing raw string prefixes. Anything that
// does not match either form is carried through as an opaque passthrough
// token.
//
// Merge semantics: the default set is filtered by the user overrides —
// for every feature named in an override, the default's version is
// removed. Enabling overrides survive into the output; negating overrides
// are instructions only and are dropped. Order is preserved within the
// default half and the override half.
package configure

import (
	"strings"
)

// Prefixes recognized by Parse. Everything else is a passthrough token.
const (
	withPrefix    = "--with-"
	withoutPrefix = "--without-"
)

// Option is one configure flag in tagged form.
//
// A zero Feature marks a passthrough token: a flag that is neither
// --with-* nor --without-* and is copied to the output verbatim.
type Option struct {
	// Feature is the feature name, e.g. "xwidgets" for --with-xwidgets
	// or "x-toolkit" for --with-x-toolkit=gtk3. Empty for passthrough.
	Feature string

	// Enabled is true for the --with form, false for --without.
	// Meaningless for passthrough tokens.
	Enabled bool

	// Value is the optional =<value> suffix of a --with option.
	Value string

	// Raw is the original token as supplied.
	Raw string
}

// IsPassthrough reports whether the option is an unrecognized token
// that merging must carry through unchanged.
func (o Option) IsPassthrough() bool {
	return o.Feature == ""
}

// String returns the flag as it is passed to configure. For a --with
// option this reconstructs the canonical form; passthrough tokens
// return their raw text.
func (o Option) String() string {
	if o.IsPassthrough() {
		return o.Raw
	}
	if !o.Enabled {
		return withoutPrefix + o.Feature
	}
	if o.Value != "" {
		return withPrefix + o.Feature + "=" + o.Value
	}
	return withPrefix + o.Feature
}

// Parse converts a single token into an Option. Tokens that are not
// --with-* or --without-* come back as passthrough options.
func Parse(token string) Option {
	token = strings.TrimSpace(token)

	if rest, ok := strings.CutPrefix(token, withoutPrefix); ok && rest != "" {
		// --without never carries a value; a stray =value would make
		// the feature name ambiguous, so strip it for matching.
		feature, _, _ := strings.Cut(rest, "=")
		return Option{Feature: feature, Enabled: false, Raw: token}
	}

	if rest, ok := strings.CutPrefix(token, withPrefix); ok && rest != "" {
		feature, value, _ := strings.Cut(rest, "=")
		return Option{Feature: feature, Enabled: true, Value: value, Raw: token}
	}

	return Option{Raw: token}
}

// ParseList splits a comma-separated override string into Options.
// Empty elements (from stray commas or a blank string) are dropped.
func ParseList(csv string) []Option {
	var opts []Option
	for _, token := range strings.Split(csv, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		opts = append(opts, Parse(token))
	}
	return opts
}

// Defaults returns the base configure option set used when the user
// supplies no overrides. Callers receive a fresh slice each time —
// merging never mutates its inputs.
func Defaults() []Option {
	tokens := []string{
		"--with-native-compilation",
		"--with-tree-sitter",
		"--with-json",
		"--with-xwidgets",
		"--with-x-toolkit=gtk3",
		"--with-mailutils",
	}

	opts := make([]Option, 0, len(tokens))
	for _, t := range tokens {
		opts = append(opts, Parse(t))
	}
	return opts
}

// Merge applies user overrides on top of the default option set.
//
// For every feature named by an override (in either form), the default's
// option for that feature is removed — the user's version wins. Negating
// overrides (--without) are instructions, not real configure flags, so
// they are dropped from the output after filtering. Enabling overrides
// and passthrough tokens are appended after the surviving defaults.
//
// With an empty override set the output equals the defaults.
func Merge(defaults, overrides []Option) []Option {
	// Collect the feature names the user has spoken for.
	overridden := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		if !o.IsPassthrough() {
			overridden[o.Feature] = true
		}
	}

	merged := make([]Option, 0, len(defaults)+len(overrides))
	for _, d := range defaults {
		if !d.IsPassthrough() && overridden[d.Feature] {
			continue
		}
		merged = append(merged, d)
	}

	for _, o := range overrides {
		if !o.IsPassthrough() && !o.Enabled {
			// Negation: the removal above was its whole effect.
			continue
		}
		merged = append(merged, o)
	}

	return merged
}

// Remove returns opts without any option for the given feature name.
// Passthrough tokens are never removed.
func Remove(opts []Option, feature string) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if !o.IsPassthrough() && o.Feature == feature {
			continue
		}
		out = append(out, o)
	}
	return out
}

// HasFeature reports whether opts contains an enabled option for the
// given feature name, and returns its value if so.
func HasFeature(opts []Option, feature string) (string, bool) {
	for _, o := range opts {
		if !o.IsPassthrough() && o.Enabled && o.Feature == feature {
			return o.Value, true
		}
	}
	return "", false
}

// Strings renders the option list as configure argument tokens.
func Strings(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.String())
	}
	return out
}

// AugmentForWayland appends --with-pgtk when the run happens inside a
// Wayland session and the merged set selects the GTK3 toolkit. Pure GTK
// builds render through XWayland otherwise, which is what the pgtk build
// exists to avoid.
//
// The flag is appended at most once, and never when the user explicitly
// asked for or against pgtk in their overrides. getenv is injected so
// tests do not depend on the host session.
func AugmentForWayland(merged, overrides []Option, getenv func(string) string) []Option {
	if getenv("WAYLAND_DISPLAY") == "" {
		return merged
	}

	value, ok := HasFeature(merged, "x-toolkit")
	if !ok || !strings.HasPrefix(value, "gtk") {
		return merged
	}

	if _, present := HasFeature(merged, "pgtk"); present {
		return merged
	}
	for _, o := range overrides {
		if o.Feature == "pgtk" {
			// The user already decided; do not second-guess.
			return merged
		}
	}

	return append(merged, Parse("--with-pgtk"))
}
