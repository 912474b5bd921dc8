// Package obslog is the analyzer's operational logging channel:
// terse, prefixed progress lines to stderr, gated by
// config.Options.Debug. This is deliberately not a structured
// diagnostic (see internal/reporter for those) and deliberately not
// built on a third-party logging framework — matching the teacher's
// own plain fmt.Fprintf(os.Stderr, ...) idiom (e.g.
// internal/ext/cache.go's "using cached host binary" lines).
package obslog

import (
	"fmt"
	"os"

	"github.com/cmtlang/deadvalue/internal/config"
)

const prefix = "[deadvalue] "

// Debugf writes a progress line to stderr when opts.Debug is set;
// otherwise it's a no-op.
func Debugf(opts config.Options, format string, args ...any) {
	if !opts.Debug {
		return
	}
	fmt.Fprint(os.Stderr, prefix)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
}

// Infof writes an unconditional progress line to stderr.
func Infof(format string, args ...any) {
	fmt.Fprint(os.Stderr, prefix)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
}
