// Package tag names the constructor families spec.md's Ctor
// abstract value and Ctor liveness both key on: "ordinary
// constructor, polymorphic variant, tuple, record, and 'member of
// module named s'" (spec.md §3).
package tag

import "fmt"

// Kind distinguishes the constructor families sharing the Ctor shape.
type Kind int

const (
	Ordinary Kind = iota // a data constructor: Some, None, Cons, ...
	Variant              // a polymorphic variant: `Tag
	Tuple                // the canonical tuple tag
	Record               // a record, keyed by field position
	Module               // "member of module named s"
)

func (k Kind) String() string {
	switch k {
	case Ordinary:
		return "ctor"
	case Variant:
		return "variant"
	case Tuple:
		return "tuple"
	case Record:
		return "record"
	case Module:
		return "module"
	default:
		return "?"
	}
}

// CtorTag is a fully-qualified constructor tag: its family plus a
// name (the constructor/variant/module name, or "" for the
// canonical tuple tag).
type CtorTag struct {
	Kind Kind
	Name string
}

func (t CtorTag) String() string {
	if t.Name == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.Name)
}

// TupleTag is the single canonical tag every tuple shares,
// regardless of arity — "Tuple uses a canonical name" (spec.md §3).
var TupleTag = CtorTag{Kind: Tuple}

func NewOrdinary(name string) CtorTag { return CtorTag{Kind: Ordinary, Name: name} }
func NewVariant(name string) CtorTag  { return CtorTag{Kind: Variant, Name: name} }
func NewRecord() CtorTag              { return CtorTag{Kind: Record} }
func NewModule(name string) CtorTag   { return CtorTag{Kind: Module, Name: name} }
