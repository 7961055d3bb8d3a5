// Package envfilter computes the subset of process environment variables a
// template render is allowed to see.
//
// Policy is two ordered glob pattern lists. The deny list is evaluated
// first and wins: a variable matching any deny pattern is excluded no
// matter what the allow list says. Otherwise the variable is included iff
// some allow pattern matches it. An empty deny list disables deny
// filtering entirely; config keeps "explicitly empty" distinct from
// "unset" for exactly that escape hatch.
package envfilter

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultAllowPatterns are conventionally harmless variables: user, home,
// shell and terminal identifiers on Unix and their Windows equivalents.
var DefaultAllowPatterns = []string{
	"USER", "HOME", "SHELL", "PWD", "EDITOR", "TERM", "LANG",
	"USERNAME", "USERPROFILE", "HOMEDRIVE", "HOMEPATH",
}

// DefaultDenyPatterns target secret-shaped names plus a few well-known
// exact offenders.
var DefaultDenyPatterns = []string{
	"*SECRET*", "*PASSWORD*", "*TOKEN*", "*KEY*", "*CREDENTIAL*", "*AUTH*",
	"AWS_SECRET_ACCESS_KEY", "GITHUB_TOKEN", "DATABASE_PASSWORD",
}

// Match reports whether an environment variable name matches a single
// pattern. Supported forms: "*" (all), "PREFIX*", "*SUFFIX", "*MIDDLE*",
// or an exact literal. A malformed pattern matches nothing.
func Match(name, pattern string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// Filter returns the "KEY=VALUE" entries of environ whose keys pass the
// allow/deny policy, sorted by key for deterministic output.
func Filter(environ, allow, deny []string) []string {
	var out []string
	for _, entry := range environ {
		key, _, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		if matchesAny(key, deny) {
			continue
		}
		if matchesAny(key, allow) {
			out = append(out, entry)
		}
	}
	sort.Strings(out)
	return out
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if Match(name, pattern) {
			return true
		}
	}
	return false
}
