package depgraph

import (
	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/liveness"
	"github.com/cmtlang/deadvalue/internal/tag"
	"github.com/cmtlang/deadvalue/internal/value"
)

// collector walks every unit's AST once more, now against the closure
// solver's finished fixed point, emitting spec.md §4.5's dependency
// edges. Unlike the closure generator this pass never re-runs: the
// closure map it reads is final.
type collector struct {
	cm *closure.Map
	g  *Graph
}

// Collect builds the dependency graph from a finished closure map.
func Collect(units []*cmt.Unit, cm *closure.Map) *Graph {
	c := &collector{cm: cm, g: NewGraph()}
	for _, u := range units {
		if u.Body != nil {
			// A compilation unit's own top-level module structure is
			// spec.md §1/§6's externally visible result: it must be a
			// liveness root in its own right, not merely reachable
			// through some other root, or an exported binding nothing
			// else in the program happens to reference would be
			// reported dead.
			c.g.AddEdge(flownode.Top, flownode.Expr(u.Body.Label()), constant(liveness.Top))
			c.unitModule(u.Name, u.Signature, u.Body)
		}
	}
	c.pinSideEffects()
	c.pinEscapes()
	return c.g
}

func withField(outer Transform, t tag.CtorTag, i int) Transform {
	return func(l liveness.Live) liveness.Live { return outer(liveness.FromField(t, i, l)) }
}

// ifNotBot gates f so it contributes Bot whenever the driving demand
// itself is Bot, rather than forcing a fixed shape onto a node that
// nothing actually demands (spec.md §4.5's "Func.ifnotbot"). A dead
// match must not keep its scrutinee alive just because some arm's
// pattern would inspect it.
func ifNotBot(f Transform) Transform {
	return func(l liveness.Live) liveness.Live {
		if l.IsBot() {
			return liveness.Bot
		}
		return f(l)
	}
}

// declarePattern emits the declaration-side counterpart to the
// Variable rule: every variable p binds (directly or under a nested
// tuple/ctor/record/variant projection) contributes its own demand,
// injected back up through the enclosing shape, to rootLabel — the
// scrutinee p was matched against. wrap starts as identity at the
// pattern's own scrutinee and accumulates one FromField per level of
// nesting as the walk descends.
func (c *collector) declarePattern(p cmt.Pattern, rootLabel label.Label, wrap Transform) {
	switch n := p.(type) {
	case nil, *cmt.PWildcard, *cmt.PConst:
	case *cmt.PVar:
		c.g.AddEdge(flownode.Id(n.Ident.Key()), flownode.Expr(rootLabel), wrap)
	case *cmt.PAlias:
		c.g.AddEdge(flownode.Id(n.Ident.Key()), flownode.Expr(rootLabel), wrap)
		c.declarePattern(n.Inner, rootLabel, wrap)
	case *cmt.PTuple:
		for i, sub := range n.Elements {
			c.declarePattern(sub, rootLabel, withField(wrap, tag.TupleTag, i))
		}
	case *cmt.PConstruct:
		t := tag.NewOrdinary(n.Name)
		for i, sub := range n.Args {
			c.declarePattern(sub, rootLabel, withField(wrap, t, i))
		}
	case *cmt.PVariant:
		if n.Arg != nil {
			c.declarePattern(n.Arg, rootLabel, withField(wrap, tag.NewVariant(n.Tag), 0))
		}
	case *cmt.PRecord:
		// Positions follow this pattern occurrence's own field order —
		// sound as long as a type's record literals and the patterns
		// that destructure them list fields consistently (see
		// DESIGN.md).
		for i, f := range n.Fields {
			c.declarePattern(f.Pattern, rootLabel, withField(wrap, tag.NewRecord(), i))
		}
	case *cmt.POr:
		c.declarePattern(n.Left, rootLabel, wrap)
		c.declarePattern(n.Right, rootLabel, wrap)
	case *cmt.PArray:
		for _, sub := range n.Elements {
			c.declarePattern(sub, rootLabel, constant(liveness.Top))
		}
	case *cmt.PLazy:
		c.declarePattern(n.Inner, rootLabel, constant(liveness.Top))
	}
}

// unitModule handles a compilation unit's own top-level module, where
// Signature (nil meaning fully open) additionally restricts which
// members the module-structure dependency rule exports.
func (c *collector) unitModule(unitName string, signature []string, n *cmt.ModuleStruct) {
	var exported map[string]bool
	if signature != nil {
		exported = make(map[string]bool, len(signature))
		for _, name := range signature {
			exported[name] = true
		}
	}
	for i, b := range n.Bindings {
		if b.Ident != nil {
			// A direct reference to this binding's name (picked up by the
			// ordinary Var rule as an edge into Id(b.Ident.Key())) demands
			// its value exactly as much as the reference itself.
			c.g.AddEdge(flownode.Id(b.Ident.Key()), flownode.Expr(b.Value.Label()), identity)
		}
		if exported == nil || exported[b.Name] {
			// closure.Generate's moduleStruct rule builds the module's own
			// value as a Ctor whose children are each binding's *value*
			// label, not its Id — so reading the module structure as a
			// whole projects demand onto that child exactly like the
			// Tuple/Record/Construct rules below. Deliver the same
			// projection to the binding's Id too: for a top-level unit
			// this Id is never otherwise referenced by the program, so
			// without this edge the member-projection edge above is the
			// only path in, and it stops at Expr(b.Value.Label()) rather
			// than reaching whatever the name itself stands for.
			project := func(l liveness.Live) liveness.Live { return liveness.Field(l, tag.NewModule(unitName), i) }
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(b.Value.Label()), project)
			if b.Ident != nil {
				c.g.AddEdge(flownode.Expr(n.Label()), flownode.Id(b.Ident.Key()), project)
			}
		}
		c.expr(b.Value)
	}
}

// moduleStruct handles a nested module-structure literal (not a
// compilation unit's own top level), which has no signature of its
// own to restrict against.
func (c *collector) moduleStruct(unitName string, n *cmt.ModuleStruct) {
	c.unitModule(unitName, nil, n)
}

func (c *collector) expr(e cmt.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *cmt.Var:
		if n.Ref != nil {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Id(n.Ref.Key()), identity)
		} else {
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Label()), constant(liveness.Top))
		}

	case *cmt.Const:

	case *cmt.Let:
		c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Body.Label()), identity)
		c.declarePattern(n.Pattern, n.Value.Label(), identity)
		c.expr(n.Value)
		c.expr(n.Body)

	case *cmt.LetRec:
		for _, b := range n.Bindings {
			if b.Name != nil {
				c.g.AddEdge(flownode.Id(b.Name.Key()), flownode.Expr(b.Value.Label()), identity)
			}
			c.expr(b.Value)
		}
		c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Body.Label()), identity)
		c.expr(n.Body)

	case *cmt.Fun:
		for _, cs := range n.Cases {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(cs.Body.Label()), liveness.Body)
			c.expr(cs.Body)
		}

	case *cmt.App:
		args := make([]label.Label, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.Label()
		}
		c.declareCall(n.Label(), n.Fn.Label(), args)
		c.expr(n.Fn)
		for _, a := range n.Args {
			c.expr(a)
		}

	case *cmt.Match:
		for _, arm := range n.Arms {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(arm.RHS.Label()), identity)
			if n.IsTry {
				c.declarePattern(arm.Pattern, n.Scrutinee.Label(), constant(liveness.Top))
			} else {
				c.declarePattern(arm.Pattern, n.Scrutinee.Label(), identity)
				// The scrutinee's shape is demanded at least as much as
				// every arm's pattern controls (spec.md §4.4's
				// ControlledByPat), but only when the match itself is
				// demanded in the first place — a dead match must not
				// keep its scrutinee alive (spec.md §4.5's ifnotbot gate).
				pat := arm.Pattern
				c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Scrutinee.Label()),
					ifNotBot(func(liveness.Live) liveness.Live { return liveness.ControlledByPat(pat) }))
			}
			c.expr(arm.Guard)
			c.expr(arm.RHS)
		}
		c.expr(n.Scrutinee)

	case *cmt.Tuple:
		for i, el := range n.Elements {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(el.Label()),
				func(l liveness.Live) liveness.Live { return liveness.Field(l, tag.TupleTag, i) })
			c.expr(el)
		}

	case *cmt.Record:
		for i, f := range n.Fields {
			if f.Mutable {
				c.g.AddEdge(flownode.Expr(n.Label()), flownode.Mem(n.Label(), f.Name),
					func(l liveness.Live) liveness.Live { return liveness.Field(l, tag.NewRecord(), i) })
			} else {
				c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(f.Value.Label()),
					func(l liveness.Live) liveness.Live { return liveness.Field(l, tag.NewRecord(), i) })
			}
			c.expr(f.Value)
		}

	case *cmt.Construct:
		t := tag.NewOrdinary(n.Name)
		for i, a := range n.Args {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(a.Label()),
				func(l liveness.Live) liveness.Live { return liveness.Field(l, t, i) })
			c.expr(a)
		}

	case *cmt.Variant:
		t := tag.NewVariant(n.Tag)
		if n.Arg != nil {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Arg.Label()),
				func(l liveness.Live) liveness.Live { return liveness.Field(l, t, 0) })
		}
		c.expr(n.Arg)

	case *cmt.Field:
		t := tag.NewRecord()
		for _, v := range c.cm.Expr(n.Record.Label()).Values() {
			switch cv := v.(type) {
			case value.Ctor:
				if cv.Tag.Kind == tag.Record {
					if idx := cv.FieldIndex(n.Name); idx >= 0 {
						// Field access injects its own demand back up as
						// the shape of the record being read (spec.md
						// §4.4's from_field): reading e.f at liveness l
						// means e must, at minimum, be observed as a
						// record whose f slot is demanded at l.
						c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Record.Label()),
							func(l liveness.Live) liveness.Live { return liveness.FromField(t, idx, l) })
					}
				}
			case value.Mutable:
				if cv.Field == n.Name {
					c.g.AddEdge(flownode.Expr(n.Label()), flownode.Mem(cv.Label, cv.Field), identity)
				}
			}
		}
		c.expr(n.Record)

	case *cmt.Assign:
		for _, v := range c.cm.Expr(n.Record.Label()).Values() {
			if mut, ok := v.(value.Mutable); ok && mut.Field == n.Field {
				c.g.AddEdge(flownode.Mem(mut.Label, mut.Field), flownode.Expr(n.Value.Label()), identity)
			}
		}
		// The carrier itself must be recognized as a live record, even
		// though nothing reads this particular assignment's result.
		c.g.AddEdge(flownode.Top, flownode.Expr(n.Record.Label()),
			constant(liveness.CtorOf(map[tag.CtorTag][]liveness.Live{tag.NewRecord(): {}})))
		c.expr(n.Record)
		c.expr(n.Value)

	case *cmt.Seq:
		c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Second.Label()), identity)
		c.expr(n.First)
		c.expr(n.Second)

	case *cmt.If:
		c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Then.Label()), identity)
		if n.Else != nil {
			c.g.AddEdge(flownode.Expr(n.Label()), flownode.Expr(n.Else.Label()), identity)
		}
		// The condition is only pinned to Top when skipping it could
		// skip an observable effect; a pure if's condition is otherwise
		// ordinary demand-driven data flow (spec.md §4.2).
		if c.subexprHasEffect(n.Then) || c.subexprHasEffect(n.Else) {
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Cond.Label()), constant(liveness.Top))
		}
		c.expr(n.Cond)
		c.expr(n.Then)
		c.expr(n.Else)

	case *cmt.While:
		// Loops taint their guard only when the body has a side effect
		// (spec.md §4.2); a pure while loop computes nothing observable
		// and is left to ordinary demand-driven data flow.
		if c.subexprHasEffect(n.Body) {
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Cond.Label()), constant(liveness.Top))
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Body.Label()), constant(liveness.Top))
		}
		c.expr(n.Cond)
		c.expr(n.Body)

	case *cmt.For:
		if c.subexprHasEffect(n.Body) {
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Low.Label()), constant(liveness.Top))
			c.g.AddEdge(flownode.Top, flownode.Expr(n.High.Label()), constant(liveness.Top))
			c.g.AddEdge(flownode.Top, flownode.Expr(n.Body.Label()), constant(liveness.Top))
		}
		c.expr(n.Low)
		c.expr(n.High)
		c.expr(n.Body)

	case *cmt.Prim:

	case *cmt.Raise:
		c.g.AddEdge(flownode.Top, flownode.Expr(n.Value.Label()), constant(liveness.Top))
		c.expr(n.Value)

	case *cmt.ModuleStruct:
		c.moduleStruct("", n)
	}
}

// declareCall mirrors closure.applyCall's dispatch, emitting edges
// instead of joining value sets, against the now-final closure map.
func (c *collector) declareCall(callLabel, fnLabel label.Label, args []label.Label) {
	// Generic, value-independent edge: demanding the call result at l
	// reflects back onto the bare function value as l wrapped in one
	// Func layer per supplied argument (spec.md §4.5's Application
	// rule).
	wrap := identity
	for range args {
		inner := wrap
		wrap = func(l liveness.Live) liveness.Live { return liveness.Func(inner(l)) }
	}
	c.g.AddEdge(flownode.Expr(callLabel), flownode.Expr(fnLabel), wrap)

	fnSet := c.cm.Expr(fnLabel)
	if fnSet.IsTop() || len(args) == 0 {
		return
	}
	for _, v := range fnSet.Values() {
		switch fn := v.(type) {
		case value.Fn:
			c.declareFnCall(callLabel, fn, args)
		case value.PartialApp:
			c.declareCall(callLabel, fn.Label, append(append([]label.Label{}, fn.Args...), args...))
		}
	}
}

func (c *collector) declareFnCall(callLabel label.Label, fn value.Fn, args []label.Label) {
	a := args[0]
	rest := args[1:]
	c.g.AddEdge(flownode.Id(fn.Param), flownode.Expr(a), identity)
	for _, bd := range fn.Bodies {
		c.declarePattern(bd.Pattern, a, constant(liveness.ControlledByPat(bd.Pattern)))
		if len(rest) == 0 {
			c.g.AddEdge(flownode.Expr(callLabel), flownode.Expr(bd.RHS), identity)
		} else {
			c.declareCall(callLabel, bd.RHS, rest)
		}
	}
}

// pinSideEffects implements spec.md §4.5's "side-effecting expression:
// edge Top → Expr(L) with constant Top (pins liveness)".
func (c *collector) pinSideEffects() {
	for _, l := range c.cm.EffectLabels() {
		c.g.AddEdge(flownode.Top, flownode.Expr(l), constant(liveness.Top))
	}
}

// pinEscapes generalizes spec.md §4.5's "escape to unknown external:
// edge Top → n": anywhere the closure solver itself had to widen a
// node's value set to ⊤, that node's liveness is pinned to ⊤ too,
// since an unbounded value set means we can no longer track what
// flows through it.
func (c *collector) pinEscapes() {
	for _, l := range c.cm.TopExprLabels() {
		c.g.AddEdge(flownode.Top, flownode.Expr(l), constant(liveness.Top))
	}
	for _, k := range c.cm.TopIdKeys() {
		c.g.AddEdge(flownode.Top, flownode.Id(k), constant(liveness.Top))
	}
}

// subexprHasEffect reports whether e, or anything nested inside it,
// was marked effectful during closure generation — used to gate a
// loop or conditional's guard pinning on an actual side effect rather
// than pinning it unconditionally (spec.md §4.2's "loops taint their
// guard when the body has side effects").
func (c *collector) subexprHasEffect(e cmt.Expr) bool {
	if e == nil {
		return false
	}
	if c.cm.HasEffect(e.Label()) {
		return true
	}
	switch n := e.(type) {
	case *cmt.Let:
		return c.subexprHasEffect(n.Value) || c.subexprHasEffect(n.Body)
	case *cmt.LetRec:
		for _, b := range n.Bindings {
			if c.subexprHasEffect(b.Value) {
				return true
			}
		}
		return c.subexprHasEffect(n.Body)
	case *cmt.Fun:
		for _, cs := range n.Cases {
			if c.subexprHasEffect(cs.Body) {
				return true
			}
		}
	case *cmt.App:
		if c.subexprHasEffect(n.Fn) {
			return true
		}
		for _, a := range n.Args {
			if c.subexprHasEffect(a) {
				return true
			}
		}
	case *cmt.Match:
		if c.subexprHasEffect(n.Scrutinee) {
			return true
		}
		for _, arm := range n.Arms {
			if c.subexprHasEffect(arm.Guard) || c.subexprHasEffect(arm.RHS) {
				return true
			}
		}
	case *cmt.Tuple:
		for _, el := range n.Elements {
			if c.subexprHasEffect(el) {
				return true
			}
		}
	case *cmt.Record:
		for _, f := range n.Fields {
			if c.subexprHasEffect(f.Value) {
				return true
			}
		}
	case *cmt.Construct:
		for _, a := range n.Args {
			if c.subexprHasEffect(a) {
				return true
			}
		}
	case *cmt.Variant:
		return c.subexprHasEffect(n.Arg)
	case *cmt.Field:
		return c.subexprHasEffect(n.Record)
	case *cmt.Assign:
		return true
	case *cmt.Seq:
		return c.subexprHasEffect(n.First) || c.subexprHasEffect(n.Second)
	case *cmt.If:
		return c.subexprHasEffect(n.Cond) || c.subexprHasEffect(n.Then) || c.subexprHasEffect(n.Else)
	case *cmt.While:
		return c.subexprHasEffect(n.Cond) || c.subexprHasEffect(n.Body)
	case *cmt.For:
		return c.subexprHasEffect(n.Low) || c.subexprHasEffect(n.High) || c.subexprHasEffect(n.Body)
	case *cmt.Raise:
		return true
	case *cmt.ModuleStruct:
		for _, b := range n.Bindings {
			if c.subexprHasEffect(b.Value) {
				return true
			}
		}
	}
	return false
}
