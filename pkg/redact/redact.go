// Package redact scrubs personal identifiers from caption text before it
// reaches logs or timeline artifacts. Raw audio payloads are never touched.
package redact

import (
	"regexp"
	"sync/atomic"
)

var enabled atomic.Bool

type rule struct {
	re          *regexp.Regexp
	replacement string
}

var rules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles redaction globally. Defaults to off until the config
// layer sets it.
func SetEnabled(v bool) { enabled.Store(v) }

// Enabled reports whether redaction is active.
func Enabled() bool { return enabled.Load() }

// Text applies every redaction rule when enabled, otherwise returns the
// input unchanged.
func Text(in string) string {
	if !enabled.Load() || in == "" {
		return in
	}
	for _, r := range rules {
		in = r.re.ReplaceAllString(in, r.replacement)
	}
	return in
}
