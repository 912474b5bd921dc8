// Package cmt is the in-memory typed abstract syntax tree this
// analyzer operates over: one tree per "compilation unit" (the
// package's term for the host compiler's per-module typed-tree
// artifact, spec.md §3/§6). The real host artifact format is out of
// scope; cmt.Unit is this repository's stand-in interchange shape,
// decoded by internal/artifact.
//
// Every Expr and ModuleExpr occurrence carries a label.Label, filled
// in once by internal/preprocess — cmt itself never allocates labels.
package cmt

import (
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/position"
)

// Node is the common interface every expression and pattern
// implements.
type Node interface {
	Pos() position.Position
}

// Base carries what every expression occurrence has before and after
// preprocessing: a source position (from parsing), a label (assigned
// by the preprocessor) and the static type name recorded by the
// type-checked artifact. Embedding it mirrors the
// teacher's own "embed the position-bearing token" AST style.
type Base struct {
	P    position.Position
	L    label.Label
	Type string // static type name from the type-checked artifact, "" if unknown
}

func (b *Base) Pos() position.Position  { return b.P }
func (b *Base) Label() label.Label      { return b.L }

// IsUnitType reports whether the type-checked artifact recorded this
// occurrence's static type as "unit" — used to suppress dead-expression
// warnings whose result is by definition uninformative (spec.md §4.7).
func (b *Base) IsUnitType() bool { return b.Type == "unit" }

// TypeName returns the static type name recorded by the type-checked
// artifact, "" if the artifact didn't carry one.
func (b *Base) TypeName() string { return b.Type }

// LabelPtr exposes the label field by address so internal/preprocess
// can fill it in without cmt depending on preprocess (which would be
// a cycle, since preprocess needs the cmt node types).
func (b *Base) LabelPtr() *label.Label { return &b.L }

// Expr is any expression node. Label is valid only after
// internal/preprocess has run.
type Expr interface {
	Node
	Label() label.Label
	TypeName() string
	exprNode()
}

func (b *Base) exprNode() {}

// --- Expression forms (spec.md §4.2) ---

// Var is a variable reference `x`. Ref is filled in by name
// resolution (part of preprocessing here, since the host compiler's
// resolver is out of scope); Ref == nil means the identifier escapes
// to an external module with no tracked definition, per spec.md
// §4.2's "Variable reference" rule.
type Var struct {
	Base
	Name string
	Ref  *ident.Ident
}

// Const is any constant: int, float, string, bool, char, unit, ...
// No constraint is emitted for it (spec.md §4.2).
type Const struct {
	Base
	Value any
}

// Let is `let p = e1 in e2`.
type Let struct {
	Base
	Pattern Pattern
	Value   Expr
	Body    Expr
}

// RecBinding is one binding of a `let rec ... and ...` group.
type RecBinding struct {
	Name  *ident.Ident
	Value Expr
}

// LetRec is a (possibly mutually recursive) group of bindings,
// modeling OCaml-style `let rec f = ... and g = ... in body`.
type LetRec struct {
	Base
	Bindings []RecBinding
	Body     Expr
}

// FunCase is one function-body descriptor (spec.md §4.1): a pattern
// and the label of its right-hand side.
type FunCase struct {
	Pattern Pattern
	Body    Expr
}

// Fun is `fun (p => body) | ...`. Param is the nominal formal used
// when resolving a call; each Case additionally pattern-binds the
// argument directly, so a multi-clause function can dispatch on its
// argument's shape without going through Param.
type Fun struct {
	Base
	Param *ident.Ident
	Cases []FunCase
}

// App is an application `f a1 a2 ... an`, curried left to right.
type App struct {
	Base
	Fn   Expr
	Args []Expr
}

// MatchArm is one `| pattern [when guard] -> rhs` clause of a match
// or try expression.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if absent
	RHS     Expr
}

// Match is `match e with arms` or, when IsTry is true, `try e with
// arms` (spec.md §4.2 treats the exception handler as an additional
// set of arms over the raised value).
type Match struct {
	Base
	Scrutinee Expr
	Arms      []MatchArm
	IsTry     bool
}

// Tuple is `(e1, ..., en)`.
type Tuple struct {
	Base
	Elements []Expr
}

// RecordField is one `name = value` field of a record literal.
type RecordField struct {
	Name    string
	Value   Expr
	Mutable bool
}

// Record is `{ f1 = e1; ...; fn = en }`.
type Record struct {
	Base
	Fields []RecordField
}

// Construct is an ordinary data constructor application, e.g. `Some
// x` or `Cons (h, t)`.
type Construct struct {
	Base
	Name string
	Args []Expr
}

// Variant is a polymorphic variant, e.g. `` `Tag arg ``. Arg is nil
// for a nullary variant.
type Variant struct {
	Base
	Tag string
	Arg Expr
}

// Field is field access `e.f`.
type Field struct {
	Base
	Record Expr
	Name   string
}

// Assign is mutable-field assignment `e1.f <- e2`.
type Assign struct {
	Base
	Record Expr
	Field  string
	Value  Expr
}

// Seq is `e1; e2`.
type Seq struct {
	Base
	First  Expr
	Second Expr
}

// If is `if cond then t [else e]`. Else is nil for a one-armed if,
// treated as returning unit.
type If struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

// While is `while cond do body done`.
type While struct {
	Base
	Cond Expr
	Body Expr
}

// For is `for i = low to high do body done`.
type For struct {
	Base
	Var  *ident.Ident
	Low  Expr
	High Expr
	Body Expr
}

// Prim is a reference to a named primitive, e.g. the `+` operator
// used as a value.
type Prim struct {
	Base
	Name      string
	Arity     int
	MayEffect bool
}

// Raise is `raise e`; always marked with a side effect (spec.md
// §4.2's "Exception case").
type Raise struct {
	Base
	Value Expr
}

// --- Module structure (spec.md §3's Expr(L) also ranges over module
// expressions) ---

// ModuleBinding is one named member of a module structure.
type ModuleBinding struct {
	Name  string
	Ident *ident.Ident
	Value Expr
}

// ModuleStruct is a module structure literal `struct ... end`,
// itself a labeled module-expression occurrence.
type ModuleStruct struct {
	Base
	Bindings []ModuleBinding
}

// Unit is one compilation unit: a cmt-module's name, its top-level
// module structure, and (if it has a .mli-equivalent) the list of
// exported member names used by the module-structure dependency rule
// (spec.md §4.5, "Module structure").
type Unit struct {
	Name      string
	File      string
	Body      *ModuleStruct
	Signature []string // exported member names, or nil if fully open
}
