package closure_test

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/closure"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/preprocess"
	"github.com/cmtlang/deadvalue/internal/tag"
	"github.com/cmtlang/deadvalue/internal/value"
)

// buildApplyUnit models:
//
//	result = let mk = fun x -> Box(x) in mk 1
//
// solving it should flow the call's result back to the Box
// constructor built in mk's body, through reduceFn's function-call
// rule and foldRefs' transitive closure.
func buildApplyUnit() (*cmt.Unit, *cmt.App) {
	idents := ident.NewAllocator("M")
	result := idents.Fresh("result")
	mk := idents.Fresh("mk")
	x := idents.Fresh("x")

	fn := &cmt.Fun{
		Param: x,
		Cases: []cmt.FunCase{{
			Pattern: &cmt.PVar{Ident: x},
			Body: &cmt.Construct{
				Name: "Box",
				Args: []cmt.Expr{&cmt.Var{Name: "x", Ref: x}},
			},
		}},
	}
	app := &cmt.App{
		Fn:   &cmt.Var{Name: "mk", Ref: mk},
		Args: []cmt.Expr{&cmt.Const{Value: 1}},
	}
	letExpr := &cmt.Let{
		Pattern: &cmt.PVar{Ident: mk},
		Value:   fn,
		Body:    app,
	}

	module := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "result", Ident: result, Value: letExpr},
		},
	}
	return &cmt.Unit{Name: "M", File: "m.cmt.json", Body: module}, app
}

func TestSolveFoldsCallResultThroughFunctionBody(t *testing.T) {
	unit, app := buildApplyUnit()

	alloc, index := preprocess.NewRun()
	if err := preprocess.Unit(unit, alloc, index); err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	cm := closure.Solve([]*cmt.Unit{unit})

	set := cm.Expr(app.Label())
	if set.IsTop() {
		t.Fatalf("call result should not have widened to top")
	}
	var ctors []value.Ctor
	for _, v := range set.Values() {
		if c, ok := v.(value.Ctor); ok {
			ctors = append(ctors, c)
		}
	}
	if len(ctors) != 1 {
		t.Fatalf("expected exactly one Ctor value folded into the call result, got %d (%v)", len(ctors), set.Values())
	}
	if ctors[0].Tag != tag.NewOrdinary("Box") {
		t.Errorf("expected the Box constructor, got tag %v", ctors[0].Tag)
	}
}

func TestSolveTerminatesAndIsIdempotent(t *testing.T) {
	unit, _ := buildApplyUnit()
	alloc, index := preprocess.NewRun()
	if err := preprocess.Unit(unit, alloc, index); err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	units := []*cmt.Unit{unit}
	cm := closure.Solve(units)
	size := cm.Size()

	// Re-running Generate against an already-converged map must not
	// grow it further (spec.md §3's "VS is monotone" invariant implies
	// a genuine fixed point, not merely a first-convergence snapshot).
	closure.Generate(units, cm)
	if cm.Size() != size {
		t.Errorf("map should already be at its fixed point: size was %d, now %d", size, cm.Size())
	}
}
