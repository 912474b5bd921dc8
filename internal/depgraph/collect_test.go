package depgraph_test

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/config"
	"github.com/cmtlang/deadvalue/internal/depgraph"
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/preprocess"
	"github.com/cmtlang/deadvalue/internal/reporter"
)

// buildUnit constructs one compilation unit equivalent to:
//
//	unused = 42
//	main   = let x = 5 in raise x
//
// with a signature exporting only "main". "unused" is never
// referenced by anything AND isn't exported, so it should come out
// dead; "x" is read inside the raise, so it should come out live even
// though "main" itself is never called from anywhere in this
// single-unit program.
func buildUnit() (*cmt.Unit, *ident.Ident, *ident.Ident) {
	idents := ident.NewAllocator("M")
	unused := idents.Fresh("unused")
	main := idents.Fresh("main")
	x := idents.Fresh("x")

	letExpr := &cmt.Let{
		Pattern: &cmt.PVar{Ident: x},
		Value:   &cmt.Const{Value: 5},
		Body:    &cmt.Raise{Value: &cmt.Var{Name: "x", Ref: x}},
	}

	module := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "unused", Ident: unused, Value: &cmt.Const{Value: 42}},
			{Name: "main", Ident: main, Value: letExpr},
		},
	}
	return &cmt.Unit{Name: "M", File: "m.cmt.json", Body: module, Signature: []string{"main"}}, unused, x
}

func TestEndToEndLivenessAndWarnings(t *testing.T) {
	unit, unused, x := buildUnit()

	alloc, index := preprocess.NewRun()
	if err := preprocess.Unit(unit, alloc, index); err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	units := []*cmt.Unit{unit}
	cm := closure.Solve(units)
	graph := depgraph.Collect(units, cm)
	live := depgraph.Solve(graph)

	if live.Get(flownode.Id(x.Key())).IsBot() {
		t.Errorf("x should be live: its only occurrence is read inside the raise")
	}
	if !live.Get(flownode.Id(unused.Key())).IsBot() {
		t.Errorf("unused should be dead: nothing ever references it")
	}

	warnings := reporter.Collect(units, cm, live, config.Defaults())
	var deadBindings []string
	for _, w := range warnings {
		if w.Kind == reporter.DeadBinding {
			deadBindings = append(deadBindings, w.Name)
		}
	}
	foundUnused := false
	for _, name := range deadBindings {
		switch name {
		case "x":
			t.Errorf("x should not be reported as a dead binding, got dead bindings %v", deadBindings)
		case "unused":
			foundUnused = true
		}
	}
	if !foundUnused {
		t.Errorf("expected a dead-binding warning for %q, got %v", "unused", deadBindings)
	}
}
