package reporter

import (
	"fmt"
	"sort"

	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/depgraph"
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/position"
)

type collector struct {
	cm   *closure.Map
	live *depgraph.Liveness
	opts config.Options
	out  []Warning
}

// Collect walks every unit's AST, emitting a dead-expression warning
// for each Expr(L) with M[Expr(L)]=Bot and no side effect (unit-typed
// occurrences suppressed; Var, Assign, While, For and Raise
// occurrences are never reported), and a dead-binding warning for
// each bound identifier with M[Id(k)]=Bot, reported at its
// declaration site.
// Suppressed files (config.Options.Suppress) are skipped entirely.
// The result is sorted deterministically by file, then byte offset.
func Collect(units []*cmt.Unit, cm *closure.Map, live *depgraph.Liveness, opts config.Options) []Warning {
	c := &collector{cm: cm, live: live, opts: opts}
	for _, u := range units {
		if u.Body == nil || opts.IsSuppressed(u.File) {
			continue
		}
		c.moduleStruct(u.Body)
	}
	sort.Slice(c.out, func(i, j int) bool {
		a, b := c.out[i].Pos, c.out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Offset < b.Offset
	})
	return c.out
}

func (c *collector) reportBinding(k ident.Key, pos position.Position, name string) {
	if !c.live.Get(flownode.Id(k)).IsBot() {
		return
	}
	c.out = append(c.out, Warning{
		Pos:     pos,
		Kind:    DeadBinding,
		Message: fmt.Sprintf("binding %q is never used", name),
		Name:    name,
	})
}

func (c *collector) reportExpr(x cmt.Expr) {
	l := x.Label()
	if c.cm.HasEffect(l) {
		return
	}
	if x.TypeName() == "unit" {
		return
	}
	if !c.live.Get(flownode.Expr(l)).IsBot() {
		return
	}
	c.out = append(c.out, Warning{
		Pos:     x.Pos(),
		Kind:    DeadExpression,
		Message: "this expression's value is never used",
	})
}

func (c *collector) pattern(p cmt.Pattern) {
	switch n := p.(type) {
	case nil, *cmt.PWildcard, *cmt.PConst:
	case *cmt.PVar:
		c.reportBinding(n.Ident.Key(), n.Pos(), n.Ident.Name)
	case *cmt.PAlias:
		c.reportBinding(n.Ident.Key(), n.Pos(), n.Ident.Name)
		c.pattern(n.Inner)
	case *cmt.PTuple:
		for _, sub := range n.Elements {
			c.pattern(sub)
		}
	case *cmt.PConstruct:
		for _, sub := range n.Args {
			c.pattern(sub)
		}
	case *cmt.PVariant:
		c.pattern(n.Arg)
	case *cmt.PRecord:
		for _, f := range n.Fields {
			c.pattern(f.Pattern)
		}
	case *cmt.POr:
		c.pattern(n.Left)
		c.pattern(n.Right)
	case *cmt.PArray:
		for _, sub := range n.Elements {
			c.pattern(sub)
		}
	case *cmt.PLazy:
		c.pattern(n.Inner)
	}
}

func (c *collector) moduleStruct(n *cmt.ModuleStruct) {
	for _, b := range n.Bindings {
		if b.Ident != nil {
			c.reportBinding(b.Ident.Key(), b.Value.Pos(), b.Name)
		}
		c.expr(b.Value)
	}
}

func (c *collector) expr(e cmt.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *cmt.Var:
		// A variable reference is never itself "dead": it either
		// resolves (handled as a use at its Id) or escapes.
		_ = n

	case *cmt.Const:
		c.reportExpr(n)

	case *cmt.Let:
		c.pattern(n.Pattern)
		c.reportExpr(n)
		c.expr(n.Value)
		c.expr(n.Body)

	case *cmt.LetRec:
		for _, b := range n.Bindings {
			if b.Name != nil {
				c.reportBinding(b.Name.Key(), b.Value.Pos(), b.Name.Name)
			}
			c.expr(b.Value)
		}
		c.reportExpr(n)
		c.expr(n.Body)

	case *cmt.Fun:
		c.reportExpr(n)
		for _, cs := range n.Cases {
			c.pattern(cs.Pattern)
			c.expr(cs.Body)
		}

	case *cmt.App:
		c.reportExpr(n)
		c.expr(n.Fn)
		for _, a := range n.Args {
			c.expr(a)
		}

	case *cmt.Match:
		c.reportExpr(n)
		for _, arm := range n.Arms {
			c.pattern(arm.Pattern)
			c.expr(arm.Guard)
			c.expr(arm.RHS)
		}
		c.expr(n.Scrutinee)

	case *cmt.Tuple:
		c.reportExpr(n)
		for _, el := range n.Elements {
			c.expr(el)
		}

	case *cmt.Record:
		c.reportExpr(n)
		for _, f := range n.Fields {
			c.expr(f.Value)
		}

	case *cmt.Construct:
		c.reportExpr(n)
		for _, a := range n.Args {
			c.expr(a)
		}

	case *cmt.Variant:
		c.reportExpr(n)
		c.expr(n.Arg)

	case *cmt.Field:
		c.reportExpr(n)
		c.expr(n.Record)

	case *cmt.Assign:
		// Assignment's own value is never reported dead: it always
		// carries a side effect (spec.md §4.7 excludes Mem writes).
		c.expr(n.Record)
		c.expr(n.Value)

	case *cmt.Seq:
		c.reportExpr(n)
		c.expr(n.First)
		c.expr(n.Second)

	case *cmt.If:
		c.reportExpr(n)
		c.expr(n.Cond)
		c.expr(n.Then)
		c.expr(n.Else)

	case *cmt.While:
		c.expr(n.Cond)
		c.expr(n.Body)

	case *cmt.For:
		if n.Var != nil {
			c.reportBinding(n.Var.Key(), n.Pos(), n.Var.Name)
		}
		c.expr(n.Low)
		c.expr(n.High)
		c.expr(n.Body)

	case *cmt.Prim:
		c.reportExpr(n)

	case *cmt.Raise:
		c.expr(n.Value)

	case *cmt.ModuleStruct:
		c.moduleStruct(n)
	}
}
