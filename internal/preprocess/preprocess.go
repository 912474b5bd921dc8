// Package preprocess implements spec.md §4.1, "Preprocessor & AST
// index": it walks each compilation unit's typed AST, assigns every
// expression and module-expression a fresh globally unique label,
// and records each named identifier's declaration site. It produces
// an Index resolving a label back to its source location and AST
// node.
package preprocess

import (
	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/diagnostics"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
	"github.com/cmtlang/deadvalue/internal/position"
	"golang.org/x/tools/container/intsets"
)

// Entry is one AST index record: a label's source location and a
// structural summary of the node it was assigned to.
type Entry struct {
	Pos  position.Position
	Kind string
	Node cmt.Expr
}

// Index resolves a label back to its original source location and
// AST node — "Every Expr(L) key used in any constraint appears in
// the AST index" (spec.md §3 invariant).
type Index struct {
	entries map[label.Label]*Entry
	// seen is the set of label ints assigned so far, backing Labels'
	// sorted enumeration with a sparse bitset instead of a sort pass
	// — the same intsets.Sparse worklist/visited-set idiom
	// golang.org/x/tools/go/pointer uses for its own label universe.
	seen intsets.Sparse
	// decls records each identifier's declaration site, so the
	// reporter can emit precise "dead binding" warnings.
	decls map[ident.Key]position.Position
}

func newIndex() *Index {
	return &Index{
		entries: make(map[label.Label]*Entry),
		decls:   make(map[ident.Key]position.Position),
	}
}

func (ix *Index) Lookup(l label.Label) (*Entry, bool) {
	e, ok := ix.entries[l]
	return e, ok
}

func (ix *Index) DeclSite(k ident.Key) (position.Position, bool) {
	p, ok := ix.decls[k]
	return p, ok
}

func (ix *Index) Len() int { return len(ix.entries) }

// Labels returns every label the index knows about, in ascending
// (i.e. assignment) order — used by callers that want deterministic
// iteration, e.g. the reporter and --debug dumps.
func (ix *Index) Labels() []label.Label {
	ints := ix.seen.AppendTo(make([]int, 0, ix.seen.Len()))
	out := make([]label.Label, len(ints))
	for i, v := range ints {
		out[i] = label.Label(uint64(v))
	}
	return out
}

// walker assigns labels depth-first over one compilation unit.
type walker struct {
	alloc *label.Allocator
	index *Index
}

// Unit preprocesses one compilation unit, mutating its expression
// tree in place to fill in labels, and merging its contributions into
// index. Passing the same Allocator and Index across every unit in a
// whole-program run is what keeps labels globally unique (spec.md
// §3).
func Unit(u *cmt.Unit, alloc *label.Allocator, index *Index) error {
	w := &walker{alloc: alloc, index: index}
	if u.Body != nil {
		if err := w.moduleStruct(u.Body); err != nil {
			return err
		}
	}
	return nil
}

// NewRun creates a fresh Allocator and Index pair for one
// whole-program analysis run.
func NewRun() (*label.Allocator, *Index) {
	return label.NewAllocator(), newIndex()
}

func (w *walker) assign(l *label.Label, pos position.Position, kind string, node cmt.Expr) error {
	if l.Valid() {
		return diagnostics.NewFatal("P-DUPLABEL", pos,
			"internal invariant violation: node preprocessed twice ("+kind+")")
	}
	*l = w.alloc.Fresh()
	w.index.entries[*l] = &Entry{Pos: pos, Kind: kind, Node: node}
	w.index.seen.Insert(int(uint64(*l)))
	return nil
}

func (w *walker) declare(id *ident.Ident, pos position.Position) {
	if id == nil {
		return
	}
	w.index.decls[id.Key()] = pos
}

func (w *walker) moduleStruct(m *cmt.ModuleStruct) error {
	if err := w.assign(&m.L, m.P, "module", m); err != nil {
		return err
	}
	for _, b := range m.Bindings {
		w.declare(b.Ident, b.Value.Pos())
		if err := w.expr(b.Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) pattern(p cmt.Pattern) error {
	switch n := p.(type) {
	case nil:
		return nil
	case *cmt.PWildcard:
		return nil
	case *cmt.PVar:
		w.declare(n.Ident, n.P)
		return nil
	case *cmt.PAlias:
		w.declare(n.Ident, n.P)
		return w.pattern(n.Inner)
	case *cmt.PConst:
		return nil
	case *cmt.PTuple:
		for _, e := range n.Elements {
			if err := w.pattern(e); err != nil {
				return err
			}
		}
		return nil
	case *cmt.PConstruct:
		for _, e := range n.Args {
			if err := w.pattern(e); err != nil {
				return err
			}
		}
		return nil
	case *cmt.PVariant:
		return w.pattern(n.Arg)
	case *cmt.PRecord:
		for _, f := range n.Fields {
			if err := w.pattern(f.Pattern); err != nil {
				return err
			}
		}
		return nil
	case *cmt.POr:
		if err := w.pattern(n.Left); err != nil {
			return err
		}
		return w.pattern(n.Right)
	case *cmt.PArray:
		for _, e := range n.Elements {
			if err := w.pattern(e); err != nil {
				return err
			}
		}
		return nil
	case *cmt.PLazy:
		return w.pattern(n.Inner)
	default:
		return nil
	}
}

func (w *walker) expr(e cmt.Expr) error {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *cmt.Var:
		return w.leaf(n, "var")
	case *cmt.Const:
		return w.leaf(n, "const")
	case *cmt.Let:
		if err := w.assignOf(n, "let"); err != nil {
			return err
		}
		if err := w.pattern(n.Pattern); err != nil {
			return err
		}
		if err := w.expr(n.Value); err != nil {
			return err
		}
		return w.expr(n.Body)
	case *cmt.LetRec:
		if err := w.assignOf(n, "letrec"); err != nil {
			return err
		}
		for _, b := range n.Bindings {
			w.declare(b.Name, b.Value.Pos())
			if err := w.expr(b.Value); err != nil {
				return err
			}
		}
		return w.expr(n.Body)
	case *cmt.Fun:
		if err := w.assignOf(n, "fun"); err != nil {
			return err
		}
		w.declare(n.Param, n.P)
		for _, c := range n.Cases {
			if err := w.pattern(c.Pattern); err != nil {
				return err
			}
			if err := w.expr(c.Body); err != nil {
				return err
			}
		}
		return nil
	case *cmt.App:
		if err := w.assignOf(n, "app"); err != nil {
			return err
		}
		if err := w.expr(n.Fn); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := w.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *cmt.Match:
		if err := w.assignOf(n, "match"); err != nil {
			return err
		}
		if err := w.expr(n.Scrutinee); err != nil {
			return err
		}
		for _, arm := range n.Arms {
			if err := w.pattern(arm.Pattern); err != nil {
				return err
			}
			if err := w.expr(arm.Guard); err != nil {
				return err
			}
			if err := w.expr(arm.RHS); err != nil {
				return err
			}
		}
		return nil
	case *cmt.Tuple:
		if err := w.assignOf(n, "tuple"); err != nil {
			return err
		}
		for _, el := range n.Elements {
			if err := w.expr(el); err != nil {
				return err
			}
		}
		return nil
	case *cmt.Record:
		if err := w.assignOf(n, "record"); err != nil {
			return err
		}
		for _, f := range n.Fields {
			if err := w.expr(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *cmt.Construct:
		if err := w.assignOf(n, "construct"); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := w.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *cmt.Variant:
		if err := w.assignOf(n, "variant"); err != nil {
			return err
		}
		return w.expr(n.Arg)
	case *cmt.Field:
		if err := w.assignOf(n, "field"); err != nil {
			return err
		}
		return w.expr(n.Record)
	case *cmt.Assign:
		if err := w.assignOf(n, "assign"); err != nil {
			return err
		}
		if err := w.expr(n.Record); err != nil {
			return err
		}
		return w.expr(n.Value)
	case *cmt.Seq:
		if err := w.assignOf(n, "seq"); err != nil {
			return err
		}
		if err := w.expr(n.First); err != nil {
			return err
		}
		return w.expr(n.Second)
	case *cmt.If:
		if err := w.assignOf(n, "if"); err != nil {
			return err
		}
		if err := w.expr(n.Cond); err != nil {
			return err
		}
		if err := w.expr(n.Then); err != nil {
			return err
		}
		return w.expr(n.Else)
	case *cmt.While:
		if err := w.assignOf(n, "while"); err != nil {
			return err
		}
		if err := w.expr(n.Cond); err != nil {
			return err
		}
		return w.expr(n.Body)
	case *cmt.For:
		if err := w.assignOf(n, "for"); err != nil {
			return err
		}
		w.declare(n.Var, n.P)
		if err := w.expr(n.Low); err != nil {
			return err
		}
		if err := w.expr(n.High); err != nil {
			return err
		}
		return w.expr(n.Body)
	case *cmt.Prim:
		return w.leaf(n, "prim")
	case *cmt.Raise:
		if err := w.assignOf(n, "raise"); err != nil {
			return err
		}
		return w.expr(n.Value)
	case *cmt.ModuleStruct:
		return w.moduleStruct(n)
	default:
		return nil
	}
}

// labeler is implemented by every concrete cmt.Expr via its embedded
// base, exposing the label field by pointer so the walker can fill
// it in.
type labeler interface {
	LabelPtr() *label.Label
}

func (w *walker) assignOf(n cmt.Expr, kind string) error {
	lp, ok := n.(labeler)
	if !ok {
		return diagnostics.NewFatal("P-NOLABEL", n.Pos(), "internal invariant violation: node has no label slot ("+kind+")")
	}
	return w.assign(lp.LabelPtr(), n.Pos(), kind, n)
}

func (w *walker) leaf(n cmt.Expr, kind string) error {
	return w.assignOf(n, kind)
}
