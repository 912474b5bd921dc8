package artifact_test

import (
	"bytes"
	"testing"

	"github.com/cmtlang/deadvalue/internal/artifact"
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/position"
)

func buildRoundTripUnit() *cmt.Unit {
	idents := ident.NewAllocator("M")
	x := idents.Fresh("x")
	main := idents.Fresh("main")

	fn := &cmt.Fun{
		Param: x,
		Cases: []cmt.FunCase{{
			Pattern: &cmt.PVar{Ident: x},
			Body:    &cmt.Tuple{Elements: []cmt.Expr{&cmt.Var{Name: "x", Ref: x}, &cmt.Const{Value: float64(7)}}},
		}},
		Base: cmt.Base{P: position.Position{File: "m.cmt.json", Line: 3, Col: 1, Offset: 10, EndOffset: 40}},
	}
	app := &cmt.App{
		Fn:   &cmt.Var{Name: "x", Ref: x},
		Args: []cmt.Expr{&cmt.Const{Value: "hello"}},
		Base: cmt.Base{Type: "int"},
	}
	letExpr := &cmt.Let{
		Pattern: &cmt.PVar{Ident: x},
		Value:   fn,
		Body:    app,
	}

	module := &cmt.ModuleStruct{
		Bindings: []cmt.ModuleBinding{
			{Name: "main", Ident: main, Value: letExpr},
		},
	}
	return &cmt.Unit{Name: "M", File: "m.cmt.json", Body: module, Signature: []string{"main"}}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	unit := buildRoundTripUnit()

	var buf bytes.Buffer
	if err := artifact.Encode(&buf, unit); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := artifact.Decode(&buf, "m.cmt.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Name != "M" {
		t.Errorf("expected module name %q, got %q", "M", decoded.Name)
	}
	if len(decoded.Signature) != 1 || decoded.Signature[0] != "main" {
		t.Errorf("expected signature [main], got %v", decoded.Signature)
	}
	if len(decoded.Body.Bindings) != 1 || decoded.Body.Bindings[0].Name != "main" {
		t.Fatalf("expected one binding named main, got %+v", decoded.Body.Bindings)
	}

	let, ok := decoded.Body.Bindings[0].Value.(*cmt.Let)
	if !ok {
		t.Fatalf("expected the decoded binding's value to be a Let, got %T", decoded.Body.Bindings[0].Value)
	}
	fn, ok := let.Value.(*cmt.Fun)
	if !ok {
		t.Fatalf("expected let's value to be a Fun, got %T", let.Value)
	}
	if fn.Pos().Line != 3 || fn.Pos().Offset != 10 || fn.Pos().EndOffset != 40 {
		t.Errorf("position did not round-trip: got %+v", fn.Pos())
	}
	if len(fn.Cases) != 1 {
		t.Fatalf("expected one function case, got %d", len(fn.Cases))
	}
	tup, ok := fn.Cases[0].Body.(*cmt.Tuple)
	if !ok || len(tup.Elements) != 2 {
		t.Fatalf("expected the case body to be a 2-element Tuple, got %T", fn.Cases[0].Body)
	}
	v, ok := tup.Elements[0].(*cmt.Var)
	if !ok || v.Name != "x" || v.Ref == nil {
		t.Fatalf("expected tuple's first element to be a resolved Var x, got %+v", tup.Elements[0])
	}

	app, ok := let.Body.(*cmt.App)
	if !ok {
		t.Fatalf("expected let's body to be an App, got %T", let.Body)
	}
	if app.TypeName() != "int" {
		t.Errorf("expected App's static type to round-trip as %q, got %q", "int", app.TypeName())
	}
	if len(app.Args) != 1 {
		t.Fatalf("expected one argument, got %d", len(app.Args))
	}
	if c, ok := app.Args[0].(*cmt.Const); !ok || c.Value != "hello" {
		t.Errorf("expected App's argument to be Const(\"hello\"), got %+v", app.Args[0])
	}
}

func TestDecodeFallsBackToPathDerivedName(t *testing.T) {
	raw := `{"body":{"pos":{},"bindings":[]}}`
	unit, err := artifact.Decode(bytes.NewBufferString(raw), "/pkg/widget.cmt.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if unit.Name != "widget" {
		t.Errorf("expected the module name to fall back to the path-derived %q, got %q", "widget", unit.Name)
	}
}
