// Package closure implements spec.md §4.2 (constraint generation) and
// §4.3 (the closure solver) as a single combined fixed-point pass: on
// each outer iteration it re-applies every node's semantic rule
// against the current Map and folds indirections (ExprRef/IdRef/
// MemRef) into their target's set, stopping when nothing changes.
// Value sets only ever grow (spec.md §3's monotonicity invariant), so
// this terminates at the bound given by the program's finite label
// and constructor universe.
package closure

import (
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/value"
)

// Map is the closure map C (spec.md §3): label → VS, Id → VS, plus the
// Mem(L,field) namespace field access and assignment read from.
type Map struct {
	exprs map[label.Label]*value.Set
	ids   map[ident.Key]*value.Set
	mem   map[memKey]*value.Set

	// effects is the side-effect set E: labels that may cause an
	// externally observable effect (spec.md §3).
	effects map[label.Label]bool
}

type memKey struct {
	l     label.Label
	field string
}

func NewMap() *Map {
	return &Map{
		exprs:   make(map[label.Label]*value.Set),
		ids:     make(map[ident.Key]*value.Set),
		mem:     make(map[memKey]*value.Set),
		effects: make(map[label.Label]bool),
	}
}

func (m *Map) exprSet(l label.Label) *value.Set {
	s, ok := m.exprs[l]
	if !ok {
		z := value.Empty()
		s = &z
		m.exprs[l] = s
	}
	return s
}

func (m *Map) idSet(k ident.Key) *value.Set {
	s, ok := m.ids[k]
	if !ok {
		z := value.Empty()
		s = &z
		m.ids[k] = s
	}
	return s
}

func (m *Map) memSet(l label.Label, field string) *value.Set {
	k := memKey{l, field}
	s, ok := m.mem[k]
	if !ok {
		z := value.Empty()
		s = &z
		m.mem[k] = s
	}
	return s
}

// Expr returns the current value set for an expression label.
func (m *Map) Expr(l label.Label) value.Set { return *m.exprSet(l) }

// Id returns the current value set for an identifier.
func (m *Map) Id(k ident.Key) value.Set { return *m.idSet(k) }

// Mem returns the current value set for a mutable field's storage cell.
func (m *Map) Mem(l label.Label, field string) value.Set { return *m.memSet(l, field) }

// AddExpr adds v to C[Expr(l)], returning whether it changed.
func (m *Map) AddExpr(l label.Label, v value.Value) bool { return m.exprSet(l).Add(v) }

// AddId adds v to C[Id(k)], returning whether it changed.
func (m *Map) AddId(k ident.Key, v value.Value) bool { return m.idSet(k).Add(v) }

// AddMem adds v to C[Mem(l,field)], returning whether it changed.
func (m *Map) AddMem(l label.Label, field string, v value.Value) bool {
	return m.memSet(l, field).Add(v)
}

// JoinExpr joins other into C[Expr(l)].
func (m *Map) JoinExpr(l label.Label, other value.Set) bool { return m.exprSet(l).Join(other) }

// JoinId joins other into C[Id(k)].
func (m *Map) JoinId(k ident.Key, other value.Set) bool { return m.idSet(k).Join(other) }

// JoinMem joins other into C[Mem(l,field)].
func (m *Map) JoinMem(l label.Label, field string, other value.Set) bool {
	return m.memSet(l, field).Join(other)
}

// TopExpr promotes C[Expr(l)] to ⊤.
func (m *Map) TopExpr(l label.Label) bool { return m.exprSet(l).MakeTop() }

// TopId promotes C[Id(k)] to ⊤.
func (m *Map) TopId(k ident.Key) bool { return m.idSet(k).MakeTop() }

// MarkEffect records that l may cause an externally observable effect.
func (m *Map) MarkEffect(l label.Label) { m.effects[l] = true }

// HasEffect reports whether l may cause an externally observable effect.
func (m *Map) HasEffect(l label.Label) bool { return m.effects[l] }

// Size is a monotone measure of everything recorded in m: the sum of
// every value set's cardinality (⊤ counts as a large constant so it
// still registers as strictly larger than any finite set) plus the
// side-effect count. The closure solver is a fixed point over a
// monotone lattice (spec.md §3's "VS is monotone: the closure solver
// never shrinks a set"), so comparing Size across outer iterations is
// a simple, robust way to detect convergence without threading a
// precise "did anything change" signal through every generation rule.
func (m *Map) Size() int {
	const topWeight = 1 << 20
	total := 0
	for _, s := range m.exprs {
		if s.IsTop() {
			total += topWeight
		} else {
			total += s.Len()
		}
	}
	for _, s := range m.ids {
		if s.IsTop() {
			total += topWeight
		} else {
			total += s.Len()
		}
	}
	for _, s := range m.mem {
		if s.IsTop() {
			total += topWeight
		} else {
			total += s.Len()
		}
	}
	total += len(m.effects)
	return total
}

// EffectLabels returns every label in the side-effect set.
func (m *Map) EffectLabels() []label.Label {
	out := make([]label.Label, 0, len(m.effects))
	for l := range m.effects {
		out = append(out, l)
	}
	return out
}

// TopExprLabels returns every expression label whose value set widened
// to ⊤.
func (m *Map) TopExprLabels() []label.Label {
	out := make([]label.Label, 0)
	for l, s := range m.exprs {
		if s.IsTop() {
			out = append(out, l)
		}
	}
	return out
}

// TopIdKeys returns every identifier whose value set widened to ⊤.
func (m *Map) TopIdKeys() []ident.Key {
	out := make([]ident.Key, 0)
	for k, s := range m.ids {
		if s.IsTop() {
			out = append(out, k)
		}
	}
	return out
}
