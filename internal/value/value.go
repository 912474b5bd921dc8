// Package value implements the abstract-value domain the closure
// solver computes over (spec.md §3's "Abstract value (V)" and "Value
// set (VS)").
package value

import (
	"fmt"
	"sort"

	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/tag"
)

// Value is one abstract value a label or identifier may evaluate to.
// Concrete forms mirror spec.md §3: Prim, Fn, PartialApp, Ctor,
// Mutable, ExprRef, IdRef, Unknown, plus MemRef, an indirection to a
// mutable field's storage cell.
type Value interface {
	valueNode()
	// key returns a canonical string uniquely identifying this value,
	// used to dedupe within a Set without relying on Go's
	// struct-with-slice incomparability.
	key() string
}

// BodyDescriptor is one function clause (spec.md §4.1's "function body
// descriptor"): its formal pattern and the label of its right-hand
// side.
type BodyDescriptor struct {
	Pattern cmt.Pattern
	RHS     label.Label
}

// Prim is a named primitive with its declared arity and effect bit.
type Prim struct {
	Name      string
	Arity     int
	MayEffect bool
}

func (Prim) valueNode() {}
func (p Prim) key() string { return fmt.Sprintf("prim:%s/%d", p.Name, p.Arity) }

// Fn is a function closure identified by its defining expression
// label, its formal parameter, and its clause bodies.
type Fn struct {
	Label   label.Label
	Param   ident.Key
	Bodies  []BodyDescriptor
}

func (Fn) valueNode() {}
func (f Fn) key() string { return fmt.Sprintf("fn:%s", f.Label) }

// PartialApp is an under-applied call awaiting more arguments. Args
// are the labels of the arguments already supplied.
type PartialApp struct {
	Label label.Label
	Args  []label.Label
}

func (PartialApp) valueNode() {}
func (p PartialApp) key() string {
	s := fmt.Sprintf("papp:%s", p.Label)
	for _, a := range p.Args {
		s += "," + a.String()
	}
	return s
}

// Ctor is a constructed sum value: an ordinary constructor,
// polymorphic variant, tuple, or record, each carrying its children's
// labels. DefLabel is the label of the literal that produced this
// value; it is part of the value's key, so Ctors built by different
// literals stay distinct within a Set. Fields carries the child field
// names, populated only for records (tuples and constructors project
// positionally).
type Ctor struct {
	Tag      tag.CtorTag
	DefLabel label.Label
	Children []label.Label
	Fields   []string
}

func (Ctor) valueNode() {}
func (c Ctor) key() string {
	s := fmt.Sprintf("ctor:%s@%s", c.Tag, c.DefLabel)
	for _, l := range c.Children {
		s += "," + l.String()
	}
	return s
}

// FieldIndex returns the child index of the named record field, or -1.
func (c Ctor) FieldIndex(name string) int {
	for i, f := range c.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Mutable is a reference to a mutable record field's storage cell.
type Mutable struct {
	Label label.Label
	Field string
}

func (Mutable) valueNode() {}
func (m Mutable) key() string { return fmt.Sprintf("mut:%s.%s", m.Label, m.Field) }

// ExprRef is an indirection back to another expression's value set,
// used to model let, match-arm joins, etc. without copying sets
// eagerly during constraint generation (spec.md §4.3's "Transitive
// closure").
type ExprRef struct{ Label label.Label }

func (ExprRef) valueNode() {}
func (r ExprRef) key() string { return "eref:" + r.Label.String() }

// IdRef is an indirection back to an identifier's value set.
type IdRef struct{ Id ident.Key }

func (IdRef) valueNode() {}
func (r IdRef) key() string { return fmt.Sprintf("iref:%s/%d", r.Id.Module, r.Id.Stamp) }

// MemRef is an indirection back to a mutable field cell's value set
// (spec.md §3's Mem(L,field) flow node), used the same way ExprRef and
// IdRef are: to model "read from Mem" without copying sets eagerly.
type MemRef struct {
	Label label.Label
	Field string
}

func (MemRef) valueNode() {}
func (r MemRef) key() string { return fmt.Sprintf("mref:%s.%s", r.Label, r.Field) }

// Unknown is an escape to the external world; equivalent at lookup
// time to the universal set.
type Unknown struct{}

func (Unknown) valueNode() {}
func (Unknown) key() string { return "unknown" }

// Set is a Value set: either the universal set Top, or a finite set
// of Values keyed canonically to dedupe.
type Set struct {
	top    bool
	values map[string]Value
}

// Empty returns the empty, non-Top set.
func Empty() Set { return Set{values: map[string]Value{}} }

// TopSet returns the universal ⊤ set.
func TopSet() Set { return Set{top: true} }

// Singleton returns a set containing exactly v.
func Singleton(v Value) Set {
	s := Empty()
	s.Add(v)
	return s
}

func (s Set) IsTop() bool { return s.top }

func (s Set) Len() int { return len(s.values) }

// Add inserts v into s, returning whether the set changed (grew).
// Adding to a Top set is a no-op (Top already absorbs everything).
func (s *Set) Add(v Value) bool {
	if s.top {
		return false
	}
	if s.values == nil {
		s.values = map[string]Value{}
	}
	k := v.key()
	if _, ok := s.values[k]; ok {
		return false
	}
	s.values[k] = v
	return true
}

// MakeTop promotes s to ⊤, returning whether this was a change.
func (s *Set) MakeTop() bool {
	if s.top {
		return false
	}
	s.top = true
	s.values = nil
	return true
}

// Join folds other into s in place ("the closure solver never
// shrinks a set", spec.md §3), returning whether s changed.
func (s *Set) Join(other Set) bool {
	if s.top {
		return false
	}
	if other.top {
		return s.MakeTop()
	}
	changed := false
	for _, v := range other.values {
		if s.Add(v) {
			changed = true
		}
	}
	return changed
}

// Values returns the set's members in a deterministic order. Calling
// it on a Top set returns nil — callers must check IsTop first.
func (s Set) Values() []Value {
	if s.top {
		return nil
	}
	out := make([]Value, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}
