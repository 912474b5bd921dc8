// Package ident implements spec.md §3's Identifier: "a pair
// (cmt-module-name, local-stamp)". Local stamps are unique within a
// compilation unit; top-level module identifiers are additionally
// global, and identifiers of external top-level modules are
// synthesized on demand.
package ident

import "fmt"

// Ident is a bound name: a let binding, a function parameter, a
// pattern variable, a for-loop index, or a module binding. Every
// bound name in the program becomes exactly one Ident.
type Ident struct {
	Module string // cmt-module-name (compilation-unit name)
	Stamp  int    // unique within Module
	Name   string // source name, for diagnostics only — never used for equality
}

// String renders a stable, human-readable key.
func (id Ident) String() string {
	return fmt.Sprintf("%s/%d(%s)", id.Module, id.Stamp, id.Name)
}

// Key is the comparable identity used as a map key; Name is
// deliberately excluded since two differently-spelled shadowing
// bindings never share a stamp, but we don't want accidental
// name-based aliasing if a caller builds an Ident by hand.
type Key struct {
	Module string
	Stamp  int
}

func (id Ident) Key() Key { return Key{Module: id.Module, Stamp: id.Stamp} }

// Allocator hands out fresh, unique stamps for one compilation unit.
type Allocator struct {
	module string
	next   int
}

// NewAllocator creates an allocator for the named compilation unit.
func NewAllocator(module string) *Allocator {
	return &Allocator{module: module}
}

// Fresh allocates a new Ident bound to name, for diagnostics.
func (a *Allocator) Fresh(name string) *Ident {
	id := &Ident{Module: a.module, Stamp: a.next, Name: name}
	a.next++
	return id
}

// ExternalRegistry synthesizes a stable Ident for a name that
// resolves to an external top-level module's member, on demand —
// "Identifiers of external top-level modules are synthesized on
// demand" (spec.md §3).
type ExternalRegistry struct {
	seen map[string]*Ident
	next int
}

func NewExternalRegistry() *ExternalRegistry {
	return &ExternalRegistry{seen: make(map[string]*Ident), next: -1}
}

// Synthesize returns the (possibly cached) external Ident naming
// moduleName.member. External idents use negative stamps, one per
// distinct (module, member) pair, since they have no defining
// compilation unit of our own.
func (r *ExternalRegistry) Synthesize(moduleName, member string) *Ident {
	key := moduleName + "." + member
	if id, ok := r.seen[key]; ok {
		return id
	}
	id := &Ident{Module: moduleName, Stamp: r.next, Name: member}
	r.next--
	r.seen[key] = id
	return id
}
