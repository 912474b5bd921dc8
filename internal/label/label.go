// Package label defines spec.md §3's Label: "an opaque globally
// unique handle assigned to every expression and every
// module-expression occurrence". Labels are created only by the
// preprocessor and are immutable thereafter.
package label

import "fmt"

// Label is a globally unique handle. The zero value is never issued
// by an Allocator and can be used as a sentinel for "no label".
type Label uint64

func (l Label) String() string { return fmt.Sprintf("L%d", uint64(l)) }

// Valid reports whether l was actually issued by an Allocator.
func (l Label) Valid() bool { return l != 0 }

// Allocator hands out fresh labels. Labels are deterministic: two
// preprocessing runs over the same compilation units in the same
// order produce identical labels, which is what keeps "function
// identity via defining expression label" (spec.md §9) stable across
// runs.
type Allocator struct {
	next uint64
}

// NewAllocator starts numbering from 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Fresh returns a new, never-before-issued label.
func (a *Allocator) Fresh() Label {
	l := Label(a.next)
	a.next++
	return l
}
