// Package liveness implements the Live lattice (spec.md §4.4): a
// finite-height structural descriptor of how much of a value is
// observed, used by the dependency graph's edge transformers and the
// liveness solver.
package liveness

import (
	"sort"
	"strings"

	"github.com/cmtlang/deadvalue/internal/cmt"
	"github.com/cmtlang/deadvalue/internal/tag"
)

type kind int

const (
	kindBot kind = iota
	kindTop
	kindFunc
	kindCtor
)

// Live is an immutable value of the lattice `Top | Bot | Func(Live) |
// Ctor(Map<CtorTag,[Live]>)`. The zero value is Bot.
type Live struct {
	k     kind
	fn    *Live
	ctors map[tag.CtorTag][]Live
}

// Bot is the lattice bottom: "not observed".
var Bot = Live{k: kindBot}

// Top is the lattice top: "fully observed"; it dominates every join.
var Top = Live{k: kindTop}

// Func builds Func(l): "the result of calling this function is
// demanded at l".
func Func(l Live) Live { return Live{k: kindFunc, fn: &l} }

// CtorOf builds Ctor(m): "field i of tag t is demanded at m[t][i]".
func CtorOf(m map[tag.CtorTag][]Live) Live {
	if len(m) == 0 {
		return Bot
	}
	return Live{k: kindCtor, ctors: m}
}

func (l Live) IsBot() bool  { return l.k == kindBot }
func (l Live) IsTop() bool  { return l.k == kindTop }
func (l Live) IsFunc() bool { return l.k == kindFunc }
func (l Live) IsCtor() bool { return l.k == kindCtor }

// Body extracts the channel behind a Func: body(Func(l)) = l;
// body(Top) = Top; else Bot (spec.md §4.4).
func Body(l Live) Live {
	switch l.k {
	case kindFunc:
		return *l.fn
	case kindTop:
		return Top
	default:
		return Bot
	}
}

// Field extracts the i-th slot of tag t: Top if the carrier is Top,
// Bot otherwise (spec.md §4.4).
func Field(l Live, t tag.CtorTag, i int) Live {
	switch l.k {
	case kindTop:
		return Top
	case kindCtor:
		fields, ok := l.ctors[t]
		if !ok || i >= len(fields) {
			return Bot
		}
		return fields[i]
	default:
		return Bot
	}
}

// FromField injects l into the i-th slot under tag t, every other
// slot Bot, every other tag absent (spec.md §4.4).
func FromField(t tag.CtorTag, i int, l Live) Live {
	fields := make([]Live, i+1)
	for j := range fields {
		fields[j] = Bot
	}
	fields[i] = l
	return CtorOf(map[tag.CtorTag][]Live{t: fields})
}

// Join computes a ⊔ b: commutative, associative, idempotent; Bot is
// identity, Top absorbing (spec.md §8 property 6).
func Join(a, b Live) Live {
	if a.k == kindTop || b.k == kindTop {
		return Top
	}
	if a.k == kindBot {
		return b
	}
	if b.k == kindBot {
		return a
	}
	if a.k == kindFunc && b.k == kindFunc {
		return Func(Join(*a.fn, *b.fn))
	}
	if a.k == kindCtor && b.k == kindCtor {
		return CtorOf(mergeCtors(a.ctors, b.ctors, Join, Bot))
	}
	// Mismatched shapes (Func joined with Ctor, say) is a conservative
	// widening to Top: the lattice has no more precise common ancestor.
	return Top
}

// Meet computes a ⊓ b, dual to Join: Top is identity, Bot absorbing.
func Meet(a, b Live) Live {
	if a.k == kindBot || b.k == kindBot {
		return Bot
	}
	if a.k == kindTop {
		return b
	}
	if b.k == kindTop {
		return a
	}
	if a.k == kindFunc && b.k == kindFunc {
		return Func(Meet(*a.fn, *b.fn))
	}
	if a.k == kindCtor && b.k == kindCtor {
		return CtorOf(mergeCtors(a.ctors, b.ctors, Meet, Top))
	}
	return Bot
}

// mergeCtors pointwise-combines two Ctor maps. A tag missing from one
// side is treated, for that side, as a list of `missing` (Bot for
// Join — Bot is join's identity — Top for Meet — Top is meet's
// identity), per spec.md §4.4's "mismatching tags yield Top/Bot
// respectively for the missing side".
func mergeCtors(a, b map[tag.CtorTag][]Live, op func(x, y Live) Live, missing Live) map[tag.CtorTag][]Live {
	out := make(map[tag.CtorTag][]Live, len(a)+len(b))
	seen := map[tag.CtorTag]bool{}
	for t, af := range a {
		bf := b[t]
		out[t] = mergeFields(af, bf, op, missing)
		seen[t] = true
	}
	for t, bf := range b {
		if seen[t] {
			continue
		}
		out[t] = mergeFields(nil, bf, op, missing)
	}
	return out
}

func mergeFields(a, b []Live, op func(x, y Live) Live, missing Live) []Live {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]Live, n)
	for i := 0; i < n; i++ {
		av, bv := missing, missing
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = op(av, bv)
	}
	return out
}

// Equal reports whether a and b are the same lattice element.
func Equal(a, b Live) bool {
	if a.k != b.k {
		return false
	}
	switch a.k {
	case kindFunc:
		return Equal(*a.fn, *b.fn)
	case kindCtor:
		if len(a.ctors) != len(b.ctors) {
			return false
		}
		for t, af := range a.ctors {
			bf, ok := b.ctors[t]
			if !ok || len(af) != len(bf) {
				return false
			}
			for i := range af {
				if !Equal(af[i], bf[i]) {
					return false
				}
			}
		}
		return true
	default:
		return true
	}
}

// ControlledByPat is the structural liveness a pattern match demands
// of its scrutinee (spec.md §4.4): constants demand Top, variables
// Bot, constructors/tuples/records/variants the join of children
// wrapped in the appropriate tag.
func ControlledByPat(p cmt.Pattern) Live {
	switch n := p.(type) {
	case nil, *cmt.PWildcard, *cmt.PVar:
		return Bot
	case *cmt.PAlias:
		return ControlledByPat(n.Inner)
	case *cmt.PConst:
		return Top
	case *cmt.PTuple:
		return ctorPat(tag.TupleTag, n.Elements)
	case *cmt.PConstruct:
		return ctorPat(tag.NewOrdinary(n.Name), n.Args)
	case *cmt.PVariant:
		if n.Arg == nil {
			return FromField(tag.NewVariant(n.Tag), 0, Bot)
		}
		return FromField(tag.NewVariant(n.Tag), 0, ControlledByPat(n.Arg))
	case *cmt.PRecord:
		l := Bot
		for i, f := range n.Fields {
			l = Join(l, FromField(tag.NewRecord(), i, ControlledByPat(f.Pattern)))
		}
		return l
	case *cmt.POr:
		return Join(ControlledByPat(n.Left), ControlledByPat(n.Right))
	case *cmt.PArray, *cmt.PLazy:
		// "array/lazy → bind children against ⊤ (no element
		// tracking)" (spec.md §4.2); the scrutinee itself is Top too,
		// since we cannot project a shape out of it.
		return Top
	default:
		return Top
	}
}

func ctorPat(t tag.CtorTag, elems []cmt.Pattern) Live {
	l := Bot
	for i, e := range elems {
		l = Join(l, FromField(t, i, ControlledByPat(e)))
	}
	return l
}

// String renders l for --debug dumps.
func (l Live) String() string {
	switch l.k {
	case kindBot:
		return "Bot"
	case kindTop:
		return "Top"
	case kindFunc:
		return "Func(" + l.fn.String() + ")"
	case kindCtor:
		tags := make([]tag.CtorTag, 0, len(l.ctors))
		for t := range l.ctors {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
		var sb strings.Builder
		sb.WriteString("Ctor{")
		for i, t := range tags {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(t.String())
			sb.WriteString(":[")
			for j, f := range l.ctors[t] {
				if j > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(f.String())
			}
			sb.WriteString("]")
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return "?"
	}
}
