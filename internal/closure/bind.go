package closure

import (
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/tag"
	"github.com/cmtlang/deadvalue/internal/value"
)

// source is where pattern binding projects values out of: either a
// concrete label (whose current C[Expr(label)] is inspected) or the
// implicit top source, used for array/lazy children and for anything
// matched against an already-⊤ scrutinee (spec.md §4.2's "Pattern
// binding").
type source struct {
	label label.Label
	top   bool
}

func labelSource(l label.Label) source { return source{label: l} }

var topSource = source{top: true}

// bindPattern recursively binds p against src, re-examining src's
// current value set every call — callers re-invoke this every outer
// fixed-point iteration, so projections widen as the closure grows.
func bindPattern(m *Map, p cmt.Pattern, src source) bool {
	if src.top {
		return bindTop(m, p)
	}
	if m.Expr(src.label).IsTop() {
		return bindTop(m, p)
	}
	switch n := p.(type) {
	case nil, *cmt.PWildcard, *cmt.PConst:
		return false
	case *cmt.PVar:
		return m.AddId(n.Ident.Key(), value.ExprRef{Label: src.label})
	case *cmt.PAlias:
		c1 := m.AddId(n.Ident.Key(), value.ExprRef{Label: src.label})
		c2 := bindPattern(m, n.Inner, src)
		return c1 || c2
	case *cmt.PTuple:
		return bindProjection(m, tag.TupleTag, src.label, func(ctor value.Ctor) {
			for i, sub := range n.Elements {
				if i < len(ctor.Children) {
					bindChild(m, sub, ctor.Children[i])
				}
			}
		})
	case *cmt.PConstruct:
		t := tag.NewOrdinary(n.Name)
		return bindProjection(m, t, src.label, func(ctor value.Ctor) {
			for i, sub := range n.Args {
				if i < len(ctor.Children) {
					bindChild(m, sub, ctor.Children[i])
				}
			}
		})
	case *cmt.PVariant:
		t := tag.NewVariant(n.Tag)
		return bindProjection(m, t, src.label, func(ctor value.Ctor) {
			if n.Arg != nil && len(ctor.Children) > 0 {
				bindChild(m, n.Arg, ctor.Children[0])
			}
		})
	case *cmt.PRecord:
		return bindProjection(m, tag.NewRecord(), src.label, func(ctor value.Ctor) {
			for _, f := range n.Fields {
				idx := ctor.FieldIndex(f.Name)
				if idx >= 0 {
					bindChild(m, f.Pattern, ctor.Children[idx])
				}
			}
		})
	case *cmt.POr:
		c1 := bindPattern(m, n.Left, src)
		c2 := bindPattern(m, n.Right, src)
		return c1 || c2
	case *cmt.PArray:
		changed := false
		for _, sub := range n.Elements {
			if bindPattern(m, sub, topSource) {
				changed = true
			}
		}
		return changed
	case *cmt.PLazy:
		return bindPattern(m, n.Inner, topSource)
	default:
		return false
	}
}

func bindChild(m *Map, p cmt.Pattern, childLabel label.Label) {
	bindPattern(m, p, labelSource(childLabel))
}

// bindProjection scans src's current Ctor values matching t and runs
// project against each. Its bool return is advisory only — the solver
// (closure.Solve) determines convergence from Map.Size, not from
// threading a precise delta signal back through every rule.
func bindProjection(m *Map, t tag.CtorTag, srcLabel label.Label, project func(value.Ctor)) bool {
	ran := false
	for _, v := range m.Expr(srcLabel).Values() {
		ctor, ok := v.(value.Ctor)
		if !ok || ctor.Tag != t {
			continue
		}
		project(ctor)
		ran = true
	}
	return ran
}

// bindTop binds every variable within p to ⊤ — used when p is matched
// against an already-⊤ scrutinee, or (per spec.md §4.2) against array
// and lazy pattern children, which never track elements.
func bindTop(m *Map, p cmt.Pattern) bool {
	switch n := p.(type) {
	case nil, *cmt.PWildcard, *cmt.PConst:
		return false
	case *cmt.PVar:
		return m.TopId(n.Ident.Key())
	case *cmt.PAlias:
		c1 := m.TopId(n.Ident.Key())
		c2 := bindTop(m, n.Inner)
		return c1 || c2
	case *cmt.PTuple:
		return bindTopAll(m, n.Elements)
	case *cmt.PConstruct:
		return bindTopAll(m, n.Args)
	case *cmt.PVariant:
		return bindTop(m, n.Arg)
	case *cmt.PRecord:
		changed := false
		for _, f := range n.Fields {
			if bindTop(m, f.Pattern) {
				changed = true
			}
		}
		return changed
	case *cmt.POr:
		c1 := bindTop(m, n.Left)
		c2 := bindTop(m, n.Right)
		return c1 || c2
	case *cmt.PArray:
		return bindTopAll(m, n.Elements)
	case *cmt.PLazy:
		return bindTop(m, n.Inner)
	default:
		return false
	}
}

func bindTopAll(m *Map, ps []cmt.Pattern) bool {
	changed := false
	for _, p := range ps {
		if bindTop(m, p) {
			changed = true
		}
	}
	return changed
}
