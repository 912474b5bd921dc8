package closure

import (
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/tag"
	"github.com/cmtlang/deadvalue/internal/value"
)

// generator applies spec.md §4.2's constraint-generation rules and
// §4.3's reduction rule directly against the current Map, pulling
// whatever values are known at call time rather than emitting a
// separate constraint IR. Re-running Generate every outer iteration
// (see Solve) re-derives anything that depends on a value set that
// has since grown, which is what makes this a valid fixed point.
type generator struct {
	m *Map
}

// Generate walks every unit's AST once, applying each node's semantic
// rule. Call it repeatedly (see Solve) until Map.Size stops growing.
func Generate(units []*cmt.Unit, m *Map) {
	g := &generator{m: m}
	for _, u := range units {
		if u.Body != nil {
			g.moduleStruct(u.Name, u.Body)
		}
	}
}

func (g *generator) moduleStruct(unitName string, n *cmt.ModuleStruct) {
	names := make([]string, len(n.Bindings))
	labels := make([]label.Label, len(n.Bindings))
	for i, b := range n.Bindings {
		names[i] = b.Name
		labels[i] = b.Value.Label()
		if b.Ident != nil {
			g.m.AddId(b.Ident.Key(), value.ExprRef{Label: b.Value.Label()})
		}
	}
	g.m.AddExpr(n.Label(), value.Ctor{
		Tag:      tag.NewModule(unitName),
		DefLabel: n.Label(),
		Children: labels,
		Fields:   names,
	})
	for _, b := range n.Bindings {
		g.expr(b.Value)
	}
}

func (g *generator) expr(e cmt.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *cmt.Var:
		if n.Ref != nil {
			g.m.AddExpr(n.Label(), value.IdRef{Id: n.Ref.Key()})
		} else {
			g.m.TopExpr(n.Label())
		}

	case *cmt.Const:
		// No constraint (spec.md §4.2).

	case *cmt.Let:
		bindPattern(g.m, n.Pattern, labelSource(n.Value.Label()))
		g.m.AddExpr(n.Label(), value.ExprRef{Label: n.Body.Label()})
		g.expr(n.Value)
		g.expr(n.Body)

	case *cmt.LetRec:
		for _, b := range n.Bindings {
			if b.Name != nil {
				g.m.AddId(b.Name.Key(), value.ExprRef{Label: b.Value.Label()})
			}
			g.expr(b.Value)
		}
		g.m.AddExpr(n.Label(), value.ExprRef{Label: n.Body.Label()})
		g.expr(n.Body)

	case *cmt.Fun:
		bodies := make([]value.BodyDescriptor, len(n.Cases))
		for i, c := range n.Cases {
			bodies[i] = value.BodyDescriptor{Pattern: c.Pattern, RHS: c.Body.Label()}
		}
		g.m.AddExpr(n.Label(), value.Fn{Label: n.Label(), Param: n.Param.Key(), Bodies: bodies})
		for _, c := range n.Cases {
			g.expr(c.Body)
		}

	case *cmt.App:
		args := make([]label.Label, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.Label()
		}
		g.applyCall(n.Label(), n.Fn.Label(), args)
		g.expr(n.Fn)
		for _, a := range n.Args {
			g.expr(a)
		}

	case *cmt.Match:
		for _, arm := range n.Arms {
			g.m.AddExpr(n.Label(), value.ExprRef{Label: arm.RHS.Label()})
			if n.IsTry {
				bindPattern(g.m, arm.Pattern, topSource)
			} else {
				bindPattern(g.m, arm.Pattern, labelSource(n.Scrutinee.Label()))
			}
			g.expr(arm.Guard)
			g.expr(arm.RHS)
		}
		g.expr(n.Scrutinee)

	case *cmt.Tuple:
		children := make([]label.Label, len(n.Elements))
		for i, el := range n.Elements {
			children[i] = el.Label()
		}
		g.m.AddExpr(n.Label(), value.Ctor{Tag: tag.TupleTag, DefLabel: n.Label(), Children: children})
		for _, el := range n.Elements {
			g.expr(el)
		}

	case *cmt.Record:
		children := make([]label.Label, len(n.Fields))
		names := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			children[i] = f.Value.Label()
			names[i] = f.Name
		}
		g.m.AddExpr(n.Label(), value.Ctor{Tag: tag.NewRecord(), DefLabel: n.Label(), Children: children, Fields: names})
		for _, f := range n.Fields {
			if f.Mutable {
				g.m.AddExpr(n.Label(), value.Mutable{Label: n.Label(), Field: f.Name})
				g.m.AddMem(n.Label(), f.Name, value.ExprRef{Label: f.Value.Label()})
			}
			g.expr(f.Value)
		}

	case *cmt.Construct:
		children := make([]label.Label, len(n.Args))
		for i, a := range n.Args {
			children[i] = a.Label()
		}
		g.m.AddExpr(n.Label(), value.Ctor{Tag: tag.NewOrdinary(n.Name), DefLabel: n.Label(), Children: children})
		for _, a := range n.Args {
			g.expr(a)
		}

	case *cmt.Variant:
		var children []label.Label
		if n.Arg != nil {
			children = []label.Label{n.Arg.Label()}
		}
		g.m.AddExpr(n.Label(), value.Ctor{Tag: tag.NewVariant(n.Tag), DefLabel: n.Label(), Children: children})
		g.expr(n.Arg)

	case *cmt.Field:
		for _, v := range g.m.Expr(n.Record.Label()).Values() {
			switch cv := v.(type) {
			case value.Ctor:
				if cv.Tag.Kind == tag.Record {
					if idx := cv.FieldIndex(n.Name); idx >= 0 {
						g.m.AddExpr(n.Label(), value.ExprRef{Label: cv.Children[idx]})
					}
				}
			case value.Mutable:
				if cv.Field == n.Name {
					g.m.AddExpr(n.Label(), value.MemRef{Label: cv.Label, Field: cv.Field})
				}
			}
		}
		if g.m.Expr(n.Record.Label()).IsTop() {
			g.m.TopExpr(n.Label())
		}
		g.expr(n.Record)

	case *cmt.Assign:
		g.m.MarkEffect(n.Label())
		for _, v := range g.m.Expr(n.Record.Label()).Values() {
			if mut, ok := v.(value.Mutable); ok && mut.Field == n.Field {
				g.m.AddMem(mut.Label, mut.Field, value.ExprRef{Label: n.Value.Label()})
			}
		}
		g.expr(n.Record)
		g.expr(n.Value)

	case *cmt.Seq:
		g.m.AddExpr(n.Label(), value.ExprRef{Label: n.Second.Label()})
		g.expr(n.First)
		g.expr(n.Second)

	case *cmt.If:
		g.m.AddExpr(n.Label(), value.ExprRef{Label: n.Then.Label()})
		if n.Else != nil {
			g.m.AddExpr(n.Label(), value.ExprRef{Label: n.Else.Label()})
		}
		g.expr(n.Cond)
		g.expr(n.Then)
		g.expr(n.Else)

	case *cmt.While:
		g.expr(n.Cond)
		g.expr(n.Body)

	case *cmt.For:
		g.expr(n.Low)
		g.expr(n.High)
		g.expr(n.Body)

	case *cmt.Prim:
		g.m.AddExpr(n.Label(), value.Prim{Name: n.Name, Arity: n.Arity, MayEffect: n.MayEffect})
		if n.MayEffect {
			g.m.MarkEffect(n.Label())
		}

	case *cmt.Raise:
		g.m.MarkEffect(n.Label())
		g.expr(n.Value)

	case *cmt.ModuleStruct:
		g.moduleStruct("", n)
	}
}
