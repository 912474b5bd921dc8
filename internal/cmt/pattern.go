package cmt

import (
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/position"
)

// Pattern is any pattern node (spec.md §4.2's "Pattern binding").
type Pattern interface {
	Node
	patNode()
}

type PatBase struct {
	P position.Position
}

func (b PatBase) Pos() position.Position { return b.P }
func (PatBase) patNode()                 {}

// PWildcard is `_`.
type PWildcard struct{ PatBase }

// PVar binds the scrutinee to a fresh identifier.
type PVar struct {
	PatBase
	Ident *ident.Ident
}

// PAlias is `p as x`.
type PAlias struct {
	PatBase
	Inner Pattern
	Ident *ident.Ident
}

// PConst matches a literal constant; demands Top when pattern-bound
// (spec.md §4.4, controlledByPat).
type PConst struct {
	PatBase
	Value any
}

// PTuple is `(p1, ..., pn)`.
type PTuple struct {
	PatBase
	Elements []Pattern
}

// PConstruct matches an ordinary data constructor, e.g. `Some x`.
type PConstruct struct {
	PatBase
	Name string
	Args []Pattern
}

// PVariant matches a polymorphic variant, e.g. `` `Tag x ``.
type PVariant struct {
	PatBase
	Tag string
	Arg Pattern // nil for nullary
}

// PField is one `name = pattern` field of a record pattern.
type PField struct {
	Name    string
	Pattern Pattern
}

// PRecord matches a record, e.g. `{ a; b = p }`.
type PRecord struct {
	PatBase
	Fields []PField
}

// POr is `p1 | p2`; both sides bind against the same scrutinee
// (spec.md §4.2).
type POr struct {
	PatBase
	Left  Pattern
	Right Pattern
}

// PArray matches an array pattern; elements bind against ⊤ — "no
// element tracking" (spec.md §4.2).
type PArray struct {
	PatBase
	Elements []Pattern
}

// PLazy matches a lazy value's forced contents; its child also binds
// against ⊤ (spec.md §4.2).
type PLazy struct {
	PatBase
	Inner Pattern
}
