// Package reporter implements spec.md §4.7: turning the liveness
// solver's M map into the sequence of dead-expression and
// dead-binding warnings, with suppression and source-excerpt
// rendering.
package reporter

import (
	"fmt"

	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/position"
)

// Kind discriminates the two warning kinds spec.md §4.7 names.
type Kind string

const (
	DeadExpression Kind = "dead-expression"
	DeadBinding    Kind = "dead-binding"
)

// Warning is one reported finding: {location, kind, short message,
// source excerpt with underline} (spec.md §4.7).
type Warning struct {
	Pos     position.Position
	Kind    Kind
	Message string
	Name    string // identifier name, for dead-binding; "" for dead-expression
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: [%s] %s", w.Pos, config.RuleName, w.Message)
}
