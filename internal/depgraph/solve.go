package depgraph

import (
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/liveness"
)

// maxSCCRounds bounds the in-SCC relaxation (spec.md §4.6 step 3's "at
// most k=5 rounds"): the Live lattice has finite height per node (Bot
// < a flat Func/Ctor shape of bounded depth < Top), so a handful of
// rounds is enough in practice; this is a safety bound, not a proof
// requirement.
const maxSCCRounds = 5

// Liveness is the solved map M: flownode.Node → liveness.Live
// (spec.md §4.6's result).
type Liveness struct {
	m map[flownode.Node]liveness.Live
}

// Get returns M[n], Bot if n was never touched by any edge.
func (l *Liveness) Get(n flownode.Node) liveness.Live {
	if v, ok := l.m[n]; ok {
		return v
	}
	return liveness.Bot
}

// Solve runs spec.md §4.6's liveness solver over g: SCCs in reverse
// topological order (sinks first, per order()), each singleton
// non-self-loop SCC solved exactly once, each cyclic or self-looping
// SCC relaxed for up to maxSCCRounds rounds.
func Solve(g *Graph) *Liveness {
	res := &Liveness{m: make(map[flownode.Node]liveness.Live)}
	res.m[flownode.Top] = liveness.Top

	for _, comp := range order(g) {
		if len(comp) == 1 && !hasSelfLoop(g, comp[0]) {
			n := comp[0]
			if n == flownode.Top {
				continue
			}
			res.m[n] = res.step(g, n)
			continue
		}
		for round := 0; round < maxSCCRounds; round++ {
			changed := false
			for _, n := range comp {
				if n == flownode.Top {
					continue
				}
				next := res.step(g, n)
				if !liveness.Equal(next, res.Get(n)) {
					changed = true
				}
				res.m[n] = next
			}
			if !changed {
				break
			}
		}
	}
	return res
}

// step computes M[n] = join over every incoming edge (src, f) of
// f(M[src]) (spec.md §4.6 step 3).
func (res *Liveness) step(g *Graph, n flownode.Node) liveness.Live {
	acc := liveness.Bot
	for _, e := range g.In(n) {
		acc = liveness.Join(acc, e.transform(res.Get(e.source)))
	}
	return acc
}

func hasSelfLoop(g *Graph, n flownode.Node) bool {
	for _, e := range g.Out(n) {
		if e.target == n {
			return true
		}
	}
	return false
}
