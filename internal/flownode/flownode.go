// Package flownode defines the flow node: the common vertex type of
// both the closure map and the dependency graph (spec.md §3): "Expr(L)
// | Id(Id) | Mem(L,field) | Top".
package flownode

import (
	"fmt"

	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/label"
)

// Kind discriminates the four flow node shapes.
type Kind int

const (
	KindExpr Kind = iota
	KindId
	KindMem
	KindTop
)

// Node is a flow node. The zero value is not meaningful; use the
// Expr/Id/Mem/Top constructors. Node is a plain comparable struct so
// it can be used directly as a map key.
type Node struct {
	kind  Kind
	label label.Label
	id    ident.Key
	field string
}

// Expr is the flow node for an expression occurrence's label.
func Expr(l label.Label) Node { return Node{kind: KindExpr, label: l} }

// Id is the flow node for a named identifier.
func Id(k ident.Key) Node { return Node{kind: KindId, id: k} }

// Mem is the flow node for the storage cell of a mutable record field
// allocated at label l.
func Mem(l label.Label, field string) Node { return Node{kind: KindMem, label: l, field: field} }

// Top is the sentinel ambient-external-world node: any node reachable
// from it is conservatively live (spec.md §3).
var Top = Node{kind: KindTop}

func (n Node) Kind() Kind { return n.kind }

// Label returns the underlying label for Expr and Mem nodes.
func (n Node) Label() label.Label { return n.label }

// Field returns the mutable field name for a Mem node.
func (n Node) Field() string { return n.field }

// IdKey returns the underlying identifier key for an Id node.
func (n Node) IdKey() ident.Key { return n.id }

func (n Node) String() string {
	switch n.kind {
	case KindExpr:
		return fmt.Sprintf("Expr(%s)", n.label)
	case KindId:
		return fmt.Sprintf("Id(%s/%d)", n.id.Module, n.id.Stamp)
	case KindMem:
		return fmt.Sprintf("Mem(%s,%s)", n.label, n.field)
	case KindTop:
		return "Top"
	default:
		return "?"
	}
}
