package closure

import (
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/value"
)

// maxIterations is a backstop against a mis-modeled rule that would
// otherwise loop forever; a sound, correctly monotone system always
// reaches Map.Size's fixed point in far fewer passes than this, since
// it is bounded by the program's finite label and constructor
// universe (spec.md §4.3's "Termination").
const maxIterations = 100000

// Solve runs spec.md §4.2's constraint generation and §4.3's closure
// solver together to a fixed point over every given compilation unit,
// returning the populated closure map.
func Solve(units []*cmt.Unit) *Map {
	m := NewMap()
	prev := -1
	for i := 0; i < maxIterations; i++ {
		Generate(units, m)
		foldRefs(m)
		size := m.Size()
		if size == prev {
			break
		}
		prev = size
	}
	return m
}

// foldRefs implements the "transitive closure" half of spec.md §4.3:
// for every node whose set contains an ExprRef/IdRef/MemRef, join the
// referenced node's current set into it.
func foldRefs(m *Map) {
	for l, s := range m.exprs {
		foldInto(m, func(v value.Set) bool { return m.JoinExpr(l, v) }, *s)
	}
	for k, s := range m.ids {
		foldInto(m, func(v value.Set) bool { return m.JoinId(k, v) }, *s)
	}
	for k, s := range m.mem {
		foldInto(m, func(v value.Set) bool { return m.JoinMem(k.l, k.field, v) }, *s)
	}
}

func foldInto(m *Map, join func(value.Set) bool, s value.Set) {
	if s.IsTop() {
		return
	}
	for _, v := range s.Values() {
		switch r := v.(type) {
		case value.ExprRef:
			join(m.Expr(r.Label))
		case value.IdRef:
			join(m.Id(r.Id))
		case value.MemRef:
			join(m.Mem(r.Label, r.Field))
		}
	}
}
