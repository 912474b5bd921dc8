// Package diagnostics implements the two error tiers spec.md §7
// distinguishes: Fatal (abort the run) and Recoverable (skip one
// compilation unit, keep going). It is grounded on the teacher's own
// parser-package idiom of constructing errors via a short code, a
// source position, and a message (e.g.
// diagnostics.NewError("P000", token.Token{}, "...")).
package diagnostics

import (
	"fmt"

	"github.com/cmtlang/deadvalue/internal/position"
)

// FatalError is an internal invariant violation or unreadable input:
// "Internal invariant violations (duplicate label, empty SCC,
// missing AST index entry) abort the run with a diagnostic.
// Unreadable input artifacts are fatal." (spec.md §7)
type FatalError struct {
	Code string
	Pos  position.Position
	Msg  string
}

func NewFatal(code string, pos position.Position, msg string) *FatalError {
	return &FatalError{Code: code, Pos: pos, Msg: msg}
}

func (e *FatalError) Error() string {
	if e.Pos.Valid() {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Pos, e.Msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
}

// UnitError is a recoverable, per-compilation-unit error: "Per
// compilation unit errors in one unit do not prevent analysis of
// other units; the offending unit is skipped with a warning."
// (spec.md §7)
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
