package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/diagnostics"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/position"
)

// The raw* types are this repository's own flattened JSON
// interchange encoding of a cmt.Unit (spec.md §6: the real artifact
// format is a host-compiler concern, out of scope). One struct per
// node family, discriminated by a Kind string, keeps the schema
// uniform instead of requiring a JSON variant library.

type rawPos struct {
	Line      int `json:"line"`
	Col       int `json:"col"`
	Offset    int `json:"offset"`
	EndOffset int `json:"endOffset"`
}

type rawIdent struct {
	Module string `json:"module,omitempty"`
	Stamp  int    `json:"stamp"`
	Name   string `json:"name"`
}

type rawRecBinding struct {
	Name  rawIdent `json:"name"`
	Value rawExpr  `json:"value"`
}

type rawFunCase struct {
	Pattern rawPattern `json:"pattern"`
	Body    rawExpr    `json:"body"`
}

type rawMatchArm struct {
	Pattern rawPattern `json:"pattern"`
	Guard   *rawExpr   `json:"guard,omitempty"`
	RHS     rawExpr    `json:"rhs"`
}

type rawRecordField struct {
	Name    string  `json:"name"`
	Value   rawExpr `json:"value"`
	Mutable bool    `json:"mutable,omitempty"`
}

// rawExpr is a flattened union of every cmt.Expr form. Only the
// fields relevant to Kind are populated.
type rawExpr struct {
	Kind string `json:"kind"`
	Pos  rawPos `json:"pos"`
	Type string `json:"type,omitempty"` // static type name, "unit" suppresses dead-expression reporting

	Name  string   `json:"name,omitempty"`  // var / prim name
	Ref   *rawIdent `json:"ref,omitempty"`  // var: resolved binding, absent = escape
	Value json.RawMessage `json:"value,omitempty"` // const literal value

	Pattern *rawPattern `json:"pattern,omitempty"`
	Val     *rawExpr    `json:"val,omitempty"` // let-bound value
	Body    *rawExpr    `json:"body,omitempty"`

	Bindings []rawRecBinding `json:"bindings,omitempty"`

	Param *rawIdent    `json:"param,omitempty"`
	Cases []rawFunCase `json:"cases,omitempty"`

	Fn   *rawExpr  `json:"fn,omitempty"`
	Args []rawExpr `json:"args,omitempty"`

	Scrutinee *rawExpr      `json:"scrutinee,omitempty"`
	Arms      []rawMatchArm `json:"arms,omitempty"`
	IsTry     bool          `json:"isTry,omitempty"`

	Elements []rawExpr        `json:"elements,omitempty"`
	Fields   []rawRecordField `json:"fields,omitempty"`

	Tag *string  `json:"tag,omitempty"`
	Arg *rawExpr `json:"arg,omitempty"`

	Record *rawExpr `json:"record,omitempty"`
	Field  string   `json:"field,omitempty"`

	First  *rawExpr `json:"first,omitempty"`
	Second *rawExpr `json:"second,omitempty"`

	Cond *rawExpr `json:"cond,omitempty"`
	Then *rawExpr `json:"then,omitempty"`
	Else *rawExpr `json:"else,omitempty"`

	Var  *rawIdent `json:"var,omitempty"`
	Low  *rawExpr  `json:"low,omitempty"`
	High *rawExpr  `json:"high,omitempty"`

	Arity     int  `json:"arity,omitempty"`
	MayEffect bool `json:"mayEffect,omitempty"`
}

type rawPField struct {
	Name    string     `json:"name"`
	Pattern rawPattern `json:"pattern"`
}

// rawPattern is a flattened union of every cmt.Pattern form.
type rawPattern struct {
	Kind string `json:"kind"`
	Pos  rawPos `json:"pos"`

	Ident *rawIdent `json:"ident,omitempty"` // var / alias / for

	Inner *rawPattern `json:"inner,omitempty"` // alias / lazy

	Value json.RawMessage `json:"value,omitempty"` // const

	Elements []rawPattern `json:"elements,omitempty"` // tuple / array
	Name     string       `json:"name,omitempty"`     // construct
	Args     []rawPattern `json:"args,omitempty"`      // construct
	Tag      *string      `json:"tag,omitempty"`       // variant
	Arg      *rawPattern  `json:"arg,omitempty"`       // variant

	Fields []rawPField `json:"fields,omitempty"` // record

	Left  *rawPattern `json:"left,omitempty"`  // or
	Right *rawPattern `json:"right,omitempty"` // or
}

type rawModuleBinding struct {
	Name  string   `json:"name"`
	Ident rawIdent `json:"ident"`
	Value rawExpr  `json:"value"`
}

type rawModuleStruct struct {
	Pos      rawPos             `json:"pos"`
	Bindings []rawModuleBinding `json:"bindings"`
}

type rawUnit struct {
	Name      string          `json:"name"`
	Signature []string        `json:"signature,omitempty"`
	Body      rawModuleStruct `json:"body"`
}

func newBase(pos position.Position, typ string) cmt.Base {
	return cmt.Base{P: pos, Type: typ}
}

// --- decoding ---

type decoder struct {
	module    string
	file      string
	idents    map[int]*ident.Ident
	externals *ident.ExternalRegistry
}

func (d *decoder) pos(p rawPos) position.Position {
	return position.Position{File: d.file, Line: p.Line, Col: p.Col, Offset: p.Offset, EndOffset: p.EndOffset}
}

func (d *decoder) ident(ri *rawIdent) *ident.Ident {
	if ri == nil {
		return nil
	}
	if ri.Module != "" && ri.Module != d.module {
		if d.externals == nil {
			d.externals = ident.NewExternalRegistry()
		}
		return d.externals.Synthesize(ri.Module, ri.Name)
	}
	if id, ok := d.idents[ri.Stamp]; ok {
		return id
	}
	id := &ident.Ident{Module: d.module, Stamp: ri.Stamp, Name: ri.Name}
	d.idents[ri.Stamp] = id
	return id
}

func (d *decoder) moduleStruct(r rawModuleStruct) (*cmt.ModuleStruct, error) {
	m := &cmt.ModuleStruct{}
	m.P = d.pos(r.Pos)
	for _, rb := range r.Bindings {
		val, err := d.expr(&rb.Value)
		if err != nil {
			return nil, err
		}
		m.Bindings = append(m.Bindings, cmt.ModuleBinding{
			Name:  rb.Name,
			Ident: d.ident(&rb.Ident),
			Value: val,
		})
	}
	return m, nil
}

func (d *decoder) pattern(r *rawPattern) (cmt.Pattern, error) {
	if r == nil {
		return nil, nil
	}
	pos := d.pos(r.Pos)
	switch r.Kind {
	case "wildcard":
		return &cmt.PWildcard{}, nil
	case "var":
		p := &cmt.PVar{Ident: d.ident(r.Ident)}
		p.P = pos
		return p, nil
	case "alias":
		inner, err := d.pattern(r.Inner)
		if err != nil {
			return nil, err
		}
		p := &cmt.PAlias{Inner: inner, Ident: d.ident(r.Ident)}
		p.P = pos
		return p, nil
	case "const":
		var v any
		if len(r.Value) > 0 {
			if err := json.Unmarshal(r.Value, &v); err != nil {
				return nil, diagnostics.NewFatal("A010", pos, "decoding const pattern: "+err.Error())
			}
		}
		p := &cmt.PConst{Value: v}
		p.P = pos
		return p, nil
	case "tuple":
		els, err := d.patterns(r.Elements)
		if err != nil {
			return nil, err
		}
		p := &cmt.PTuple{Elements: els}
		p.P = pos
		return p, nil
	case "construct":
		args, err := d.patterns(r.Args)
		if err != nil {
			return nil, err
		}
		p := &cmt.PConstruct{Name: r.Name, Args: args}
		p.P = pos
		return p, nil
	case "variant":
		arg, err := d.pattern(r.Arg)
		if err != nil {
			return nil, err
		}
		tag := ""
		if r.Tag != nil {
			tag = *r.Tag
		}
		p := &cmt.PVariant{Tag: tag, Arg: arg}
		p.P = pos
		return p, nil
	case "record":
		var fields []cmt.PField
		for _, f := range r.Fields {
			fp, err := d.pattern(&f.Pattern)
			if err != nil {
				return nil, err
			}
			fields = append(fields, cmt.PField{Name: f.Name, Pattern: fp})
		}
		p := &cmt.PRecord{Fields: fields}
		p.P = pos
		return p, nil
	case "or":
		l, err := d.pattern(r.Left)
		if err != nil {
			return nil, err
		}
		rr, err := d.pattern(r.Right)
		if err != nil {
			return nil, err
		}
		p := &cmt.POr{Left: l, Right: rr}
		p.P = pos
		return p, nil
	case "array":
		els, err := d.patterns(r.Elements)
		if err != nil {
			return nil, err
		}
		p := &cmt.PArray{Elements: els}
		p.P = pos
		return p, nil
	case "lazy":
		inner, err := d.pattern(r.Inner)
		if err != nil {
			return nil, err
		}
		p := &cmt.PLazy{Inner: inner}
		p.P = pos
		return p, nil
	default:
		return nil, diagnostics.NewFatal("A011", pos, fmt.Sprintf("unknown pattern kind %q", r.Kind))
	}
}

func (d *decoder) patterns(rs []rawPattern) ([]cmt.Pattern, error) {
	out := make([]cmt.Pattern, 0, len(rs))
	for i := range rs {
		p, err := d.pattern(&rs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *decoder) exprs(rs []rawExpr) ([]cmt.Expr, error) {
	out := make([]cmt.Expr, 0, len(rs))
	for i := range rs {
		e, err := d.expr(&rs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(r *rawExpr) (cmt.Expr, error) {
	if r == nil {
		return nil, nil
	}
	pos := d.pos(r.Pos)
	switch r.Kind {
	case "var":
		return &cmt.Var{Name: r.Name, Ref: d.ident(r.Ref), Base: newBase(pos, r.Type)}, nil
	case "const":
		var v any
		if len(r.Value) > 0 {
			if err := json.Unmarshal(r.Value, &v); err != nil {
				return nil, diagnostics.NewFatal("A012", pos, "decoding const: "+err.Error())
			}
		}
		return &cmt.Const{Value: v, Base: newBase(pos, r.Type)}, nil
	case "let":
		pat, err := d.pattern(r.Pattern)
		if err != nil {
			return nil, err
		}
		val, err := d.expr(r.Val)
		if err != nil {
			return nil, err
		}
		body, err := d.expr(r.Body)
		if err != nil {
			return nil, err
		}
		return &cmt.Let{Pattern: pat, Value: val, Body: body, Base: newBase(pos, r.Type)}, nil
	case "letrec":
		var bindings []cmt.RecBinding
		for _, rb := range r.Bindings {
			v, err := d.expr(&rb.Value)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, cmt.RecBinding{Name: d.ident(&rb.Name), Value: v})
		}
		body, err := d.expr(r.Body)
		if err != nil {
			return nil, err
		}
		return &cmt.LetRec{Bindings: bindings, Body: body, Base: newBase(pos, r.Type)}, nil
	case "fun":
		var cases []cmt.FunCase
		for _, rc := range r.Cases {
			p, err := d.pattern(&rc.Pattern)
			if err != nil {
				return nil, err
			}
			b, err := d.expr(&rc.Body)
			if err != nil {
				return nil, err
			}
			cases = append(cases, cmt.FunCase{Pattern: p, Body: b})
		}
		return &cmt.Fun{Param: d.ident(r.Param), Cases: cases, Base: newBase(pos, r.Type)}, nil
	case "app":
		fn, err := d.expr(r.Fn)
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(r.Args)
		if err != nil {
			return nil, err
		}
		return &cmt.App{Fn: fn, Args: args, Base: newBase(pos, r.Type)}, nil
	case "match":
		scrut, err := d.expr(r.Scrutinee)
		if err != nil {
			return nil, err
		}
		var arms []cmt.MatchArm
		for _, ra := range r.Arms {
			p, err := d.pattern(&ra.Pattern)
			if err != nil {
				return nil, err
			}
			guard, err := d.expr(ra.Guard)
			if err != nil {
				return nil, err
			}
			rhs, err := d.expr(&ra.RHS)
			if err != nil {
				return nil, err
			}
			arms = append(arms, cmt.MatchArm{Pattern: p, Guard: guard, RHS: rhs})
		}
		return &cmt.Match{Scrutinee: scrut, Arms: arms, IsTry: r.IsTry, Base: newBase(pos, r.Type)}, nil
	case "tuple":
		els, err := d.exprs(r.Elements)
		if err != nil {
			return nil, err
		}
		return &cmt.Tuple{Elements: els, Base: newBase(pos, r.Type)}, nil
	case "record":
		var fields []cmt.RecordField
		for _, rf := range r.Fields {
			v, err := d.expr(&rf.Value)
			if err != nil {
				return nil, err
			}
			fields = append(fields, cmt.RecordField{Name: rf.Name, Value: v, Mutable: rf.Mutable})
		}
		return &cmt.Record{Fields: fields, Base: newBase(pos, r.Type)}, nil
	case "construct":
		args, err := d.exprs(r.Args)
		if err != nil {
			return nil, err
		}
		return &cmt.Construct{Name: r.Name, Args: args, Base: newBase(pos, r.Type)}, nil
	case "variant":
		arg, err := d.expr(r.Arg)
		if err != nil {
			return nil, err
		}
		tag := ""
		if r.Tag != nil {
			tag = *r.Tag
		}
		return &cmt.Variant{Tag: tag, Arg: arg, Base: newBase(pos, r.Type)}, nil
	case "field":
		rec, err := d.expr(r.Record)
		if err != nil {
			return nil, err
		}
		return &cmt.Field{Record: rec, Name: r.Field, Base: newBase(pos, r.Type)}, nil
	case "assign":
		rec, err := d.expr(r.Record)
		if err != nil {
			return nil, err
		}
		val, err := d.expr(r.Val)
		if err != nil {
			return nil, err
		}
		return &cmt.Assign{Record: rec, Field: r.Field, Value: val, Base: newBase(pos, r.Type)}, nil
	case "seq":
		first, err := d.expr(r.First)
		if err != nil {
			return nil, err
		}
		second, err := d.expr(r.Second)
		if err != nil {
			return nil, err
		}
		return &cmt.Seq{First: first, Second: second, Base: newBase(pos, r.Type)}, nil
	case "if":
		cond, err := d.expr(r.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.expr(r.Then)
		if err != nil {
			return nil, err
		}
		els, err := d.expr(r.Else)
		if err != nil {
			return nil, err
		}
		return &cmt.If{Cond: cond, Then: then, Else: els, Base: newBase(pos, r.Type)}, nil
	case "while":
		cond, err := d.expr(r.Cond)
		if err != nil {
			return nil, err
		}
		body, err := d.expr(r.Body)
		if err != nil {
			return nil, err
		}
		return &cmt.While{Cond: cond, Body: body, Base: newBase(pos, r.Type)}, nil
	case "for":
		low, err := d.expr(r.Low)
		if err != nil {
			return nil, err
		}
		high, err := d.expr(r.High)
		if err != nil {
			return nil, err
		}
		body, err := d.expr(r.Body)
		if err != nil {
			return nil, err
		}
		return &cmt.For{Var: d.ident(r.Var), Low: low, High: high, Body: body, Base: newBase(pos, r.Type)}, nil
	case "prim":
		return &cmt.Prim{Name: r.Name, Arity: r.Arity, MayEffect: r.MayEffect, Base: newBase(pos, r.Type)}, nil
	case "raise":
		val, err := d.expr(r.Val)
		if err != nil {
			return nil, err
		}
		return &cmt.Raise{Value: val, Base: newBase(pos, r.Type)}, nil
	default:
		return nil, diagnostics.NewFatal("A013", pos, fmt.Sprintf("unknown expression kind %q", r.Kind))
	}
}

// --- encoding ---

// encoder is the Encode-direction counterpart of decoder. It has no
// state of its own: unlike decoding, which must dedupe repeated
// *ident.Ident occurrences by stamp, encoding just flattens whatever
// tree it is given.
type encoder struct{}

func rawPosOf(p position.Position) rawPos {
	return rawPos{Line: p.Line, Col: p.Col, Offset: p.Offset, EndOffset: p.EndOffset}
}

func (e *encoder) ident(id *ident.Ident) *rawIdent {
	if id == nil {
		return nil
	}
	ri := &rawIdent{Stamp: id.Stamp, Name: id.Name}
	if id.Stamp < 0 {
		ri.Module = id.Module
	}
	return ri
}

func (e *encoder) moduleStruct(m *cmt.ModuleStruct) rawModuleStruct {
	r := rawModuleStruct{Pos: rawPosOf(m.Pos())}
	for _, b := range m.Bindings {
		var id rawIdent
		if ri := e.ident(b.Ident); ri != nil {
			id = *ri
		}
		r.Bindings = append(r.Bindings, rawModuleBinding{
			Name:  b.Name,
			Ident: id,
			Value: e.expr(b.Value),
		})
	}
	return r
}

func (e *encoder) pattern(p cmt.Pattern) *rawPattern {
	if p == nil {
		return nil
	}
	r := &rawPattern{Pos: rawPosOf(p.Pos())}
	switch n := p.(type) {
	case *cmt.PWildcard:
		r.Kind = "wildcard"
	case *cmt.PVar:
		r.Kind = "var"
		r.Ident = e.ident(n.Ident)
	case *cmt.PAlias:
		r.Kind = "alias"
		r.Ident = e.ident(n.Ident)
		r.Inner = e.pattern(n.Inner)
	case *cmt.PConst:
		r.Kind = "const"
		if n.Value != nil {
			if b, err := json.Marshal(n.Value); err == nil {
				r.Value = b
			}
		}
	case *cmt.PTuple:
		r.Kind = "tuple"
		r.Elements = e.patterns(n.Elements)
	case *cmt.PConstruct:
		r.Kind = "construct"
		r.Name = n.Name
		r.Args = e.patterns(n.Args)
	case *cmt.PVariant:
		r.Kind = "variant"
		tag := n.Tag
		r.Tag = &tag
		r.Arg = e.pattern(n.Arg)
	case *cmt.PRecord:
		r.Kind = "record"
		for _, f := range n.Fields {
			r.Fields = append(r.Fields, rawPField{Name: f.Name, Pattern: *e.pattern(f.Pattern)})
		}
	case *cmt.POr:
		r.Kind = "or"
		r.Left = e.pattern(n.Left)
		r.Right = e.pattern(n.Right)
	case *cmt.PArray:
		r.Kind = "array"
		r.Elements = e.patterns(n.Elements)
	case *cmt.PLazy:
		r.Kind = "lazy"
		r.Inner = e.pattern(n.Inner)
	}
	return r
}

func (e *encoder) patterns(ps []cmt.Pattern) []rawPattern {
	out := make([]rawPattern, 0, len(ps))
	for _, p := range ps {
		out = append(out, *e.pattern(p))
	}
	return out
}

func (e *encoder) exprs(es []cmt.Expr) []rawExpr {
	out := make([]rawExpr, 0, len(es))
	for _, x := range es {
		out = append(out, *e.expr(x))
	}
	return out
}

func (e *encoder) expr(x cmt.Expr) *rawExpr {
	if x == nil {
		return nil
	}
	r := &rawExpr{Pos: rawPosOf(x.Pos()), Type: x.TypeName()}
	switch n := x.(type) {
	case *cmt.Var:
		r.Kind = "var"
		r.Name = n.Name
		r.Ref = e.ident(n.Ref)
	case *cmt.Const:
		r.Kind = "const"
		if n.Value != nil {
			if b, err := json.Marshal(n.Value); err == nil {
				r.Value = b
			}
		}
	case *cmt.Let:
		r.Kind = "let"
		r.Pattern = e.pattern(n.Pattern)
		r.Val = e.expr(n.Value)
		r.Body = e.expr(n.Body)
	case *cmt.LetRec:
		r.Kind = "letrec"
		for _, b := range n.Bindings {
			var id rawIdent
			if ri := e.ident(b.Name); ri != nil {
				id = *ri
			}
			r.Bindings = append(r.Bindings, rawRecBinding{Name: id, Value: *e.expr(b.Value)})
		}
		r.Body = e.expr(n.Body)
	case *cmt.Fun:
		r.Kind = "fun"
		r.Param = e.ident(n.Param)
		for _, c := range n.Cases {
			r.Cases = append(r.Cases, rawFunCase{Pattern: *e.pattern(c.Pattern), Body: *e.expr(c.Body)})
		}
	case *cmt.App:
		r.Kind = "app"
		r.Fn = e.expr(n.Fn)
		r.Args = e.exprs(n.Args)
	case *cmt.Match:
		r.Kind = "match"
		r.Scrutinee = e.expr(n.Scrutinee)
		for _, a := range n.Arms {
			r.Arms = append(r.Arms, rawMatchArm{Pattern: *e.pattern(a.Pattern), Guard: e.expr(a.Guard), RHS: *e.expr(a.RHS)})
		}
		r.IsTry = n.IsTry
	case *cmt.Tuple:
		r.Kind = "tuple"
		r.Elements = e.exprs(n.Elements)
	case *cmt.Record:
		r.Kind = "record"
		for _, f := range n.Fields {
			r.Fields = append(r.Fields, rawRecordField{Name: f.Name, Value: *e.expr(f.Value), Mutable: f.Mutable})
		}
	case *cmt.Construct:
		r.Kind = "construct"
		r.Name = n.Name
		r.Args = e.exprs(n.Args)
	case *cmt.Variant:
		r.Kind = "variant"
		tag := n.Tag
		r.Tag = &tag
		r.Arg = e.expr(n.Arg)
	case *cmt.Field:
		r.Kind = "field"
		r.Record = e.expr(n.Record)
		r.Field = n.Name
	case *cmt.Assign:
		r.Kind = "assign"
		r.Record = e.expr(n.Record)
		r.Field = n.Field
		r.Val = e.expr(n.Value)
	case *cmt.Seq:
		r.Kind = "seq"
		r.First = e.expr(n.First)
		r.Second = e.expr(n.Second)
	case *cmt.If:
		r.Kind = "if"
		r.Cond = e.expr(n.Cond)
		r.Then = e.expr(n.Then)
		r.Else = e.expr(n.Else)
	case *cmt.While:
		r.Kind = "while"
		r.Cond = e.expr(n.Cond)
		r.Body = e.expr(n.Body)
	case *cmt.For:
		r.Kind = "for"
		r.Var = e.ident(n.Var)
		r.Low = e.expr(n.Low)
		r.High = e.expr(n.High)
		r.Body = e.expr(n.Body)
	case *cmt.Prim:
		r.Kind = "prim"
		r.Name = n.Name
		r.Arity = n.Arity
		r.MayEffect = n.MayEffect
	case *cmt.Raise:
		r.Kind = "raise"
		r.Val = e.expr(n.Value)
	}
	return r
}
