package closure

import (
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/value"
)

// applyCall implements spec.md §4.3's reduction rule for the pending
// application `Reduce(fnLabel, args...)`. It is invoked directly from
// every App node's generation rule (rather than queued separately)
// because the rule is pull-based: it only needs fnLabel's current
// value set, which Generate re-reads fresh on every outer iteration.
func (g *generator) applyCall(callLabel, fnLabel label.Label, args []label.Label) {
	fnSet := g.m.Expr(fnLabel)
	if fnSet.IsTop() {
		// Escaped callee: the call result, and every argument (since
		// we cannot know which, if any, formal parameter they flow
		// into), widen to ⊤; an opaque call is conservatively treated
		// as possibly effectful (spec.md §7's "conservative fallback").
		g.m.TopExpr(callLabel)
		for _, a := range args {
			g.m.TopExpr(a)
		}
		g.m.MarkEffect(callLabel)
		return
	}
	if len(args) == 0 {
		return
	}
	for _, v := range fnSet.Values() {
		switch fn := v.(type) {
		case value.Fn:
			g.reduceFn(callLabel, fn, args)
		case value.Prim:
			g.reducePrim(callLabel, fnLabel, args, fn)
		case value.PartialApp:
			g.applyCall(callLabel, fn.Label, append(append([]label.Label{}, fn.Args...), args...))
		}
	}
}

func (g *generator) reduceFn(callLabel label.Label, fn value.Fn, args []label.Label) {
	a := args[0]
	rest := args[1:]
	g.m.AddId(fn.Param, value.ExprRef{Label: a})
	for _, bd := range fn.Bodies {
		bindPattern(g.m, bd.Pattern, labelSource(a))
		if len(rest) == 0 {
			g.m.AddExpr(callLabel, value.ExprRef{Label: bd.RHS})
		} else {
			g.applyCall(callLabel, bd.RHS, rest)
		}
	}
}

func (g *generator) reducePrim(callLabel, fnLabel label.Label, args []label.Label, fn value.Prim) {
	if len(args) < fn.Arity {
		g.m.AddExpr(callLabel, value.PartialApp{Label: fnLabel, Args: append([]label.Label{}, args...)})
		return
	}
	// Dispatch: the default (and, per this repository's resolution of
	// spec.md §9's open question, only) primitive rule conservatively
	// taints every argument and the result to ⊤ and sets the call's
	// side-effect bit — see DESIGN.md for why no pure-primitive list
	// is carved out.
	g.m.TopExpr(callLabel)
	for _, a := range args[:fn.Arity] {
		g.m.TopExpr(a)
	}
	for _, a := range args[fn.Arity:] {
		g.m.TopExpr(a)
	}
	g.m.MarkEffect(callLabel)
}
