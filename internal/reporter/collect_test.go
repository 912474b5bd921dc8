package reporter_test

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/depgraph"
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/liveness"
	"github.com/cmtlang/deadvalue/internal/position"
	"github.com/cmtlang/deadvalue/internal/reporter"
)

func pos(file string, offset int) position.Position {
	return position.Position{File: file, Line: 1, Col: 1, Offset: offset, EndOffset: offset + 1}
}

func passthrough(l liveness.Live) liveness.Live { return l }

func TestCollectClassifiesAndSuppresses(t *testing.T) {
	idents := ident.NewAllocator("M")
	deadBind := idents.Fresh("deadBind")
	liveBind := idents.Fresh("liveBind")

	liveExpr := &cmt.Const{Base: cmt.Base{P: pos("m.cmt", 1), L: label.Label(1)}, Value: 1}
	deadExpr := &cmt.Const{Base: cmt.Base{P: pos("m.cmt", 2), L: label.Label(2)}, Value: 2}
	unitExpr := &cmt.Const{Base: cmt.Base{P: pos("m.cmt", 3), L: label.Label(3), Type: "unit"}, Value: 3}
	effectExpr := &cmt.App{
		Base: cmt.Base{P: pos("m.cmt", 4), L: label.Label(4)},
		Fn:   &cmt.Const{Base: cmt.Base{P: pos("m.cmt", 40), L: label.Label(40)}, Value: 0},
	}
	body := &cmt.Seq{
		Base:  cmt.Base{P: pos("m.cmt", 5), L: label.Label(5)},
		First: liveExpr,
		Second: &cmt.Seq{
			Base:   cmt.Base{P: pos("m.cmt", 6), L: label.Label(6)},
			First:  unitExpr,
			Second: effectExpr,
		},
	}

	module := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "deadBind", Ident: deadBind, Value: deadExpr},
			{Name: "liveBind", Ident: liveBind, Value: body},
		},
	}
	visibleUnit := &cmt.Unit{Name: "M", File: "visible.cmt", Body: module}

	suppressedModule := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "ignored", Ident: idents.Fresh("ignored"), Value: &cmt.Const{Base: cmt.Base{P: pos("hidden.cmt", 1), L: label.Label(99)}, Value: 0}},
		},
	}
	suppressedUnit := &cmt.Unit{Name: "N", File: "hidden.cmt", Body: suppressedModule}

	units := []*cmt.Unit{visibleUnit, suppressedUnit}

	cm := closure.NewMap()
	cm.MarkEffect(label.Label(4))

	g := depgraph.NewGraph()
	g.AddEdge(flownode.Top, flownode.Expr(label.Label(1)), passthrough)
	g.AddEdge(flownode.Top, flownode.Id(liveBind.Key()), passthrough)
	live := depgraph.Solve(g)

	opts := config.Defaults()
	opts.Suppress = []string{"hidden.cmt"}

	warnings := reporter.Collect(units, cm, live, opts)

	byPos := make(map[int]reporter.Warning)
	var deadBindingNames []string
	for _, w := range warnings {
		if w.Pos.File == "hidden.cmt" {
			t.Fatalf("suppressed file's unit should produce no warnings, got %v", w)
		}
		if w.Kind == reporter.DeadBinding {
			deadBindingNames = append(deadBindingNames, w.Name)
			continue
		}
		byPos[w.Pos.Offset] = w
	}

	if _, ok := byPos[1]; ok {
		t.Errorf("live expression at offset 1 should not be reported dead")
	}
	if _, ok := byPos[2]; !ok {
		t.Errorf("dead, non-unit, non-effectful expression at offset 2 should be reported")
	}
	if _, ok := byPos[3]; ok {
		t.Errorf("unit-typed expression at offset 3 should be suppressed regardless of liveness")
	}
	if _, ok := byPos[4]; ok {
		t.Errorf("expression marked with an effect should never be reported dead")
	}

	foundDead, foundLive := false, false
	for _, name := range deadBindingNames {
		switch name {
		case "deadBind":
			foundDead = true
		case "liveBind":
			foundLive = true
		}
	}
	if !foundDead {
		t.Errorf("expected a dead-binding warning for deadBind, got %v", deadBindingNames)
	}
	if foundLive {
		t.Errorf("liveBind is pinned live and must not be reported dead, got %v", deadBindingNames)
	}
}
