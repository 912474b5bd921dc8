package depgraph

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/ident"
	"github.com/cmtlang/deadvalue/internal/liveness"
)

func node(stamp int) flownode.Node {
	return flownode.Id(ident.Key{Module: "t", Stamp: stamp})
}

func TestOrderPutsSourceBeforeTarget(t *testing.T) {
	g := NewGraph()
	a, b, c := node(1), node(2), node(3)
	g.AddEdge(a, b, identity)
	g.AddEdge(b, c, identity)

	comps := order(g)
	pos := make(map[flownode.Node]int)
	for i, comp := range comps {
		for _, n := range comp {
			pos[n] = i
		}
	}
	if pos[a] >= pos[b] {
		t.Errorf("a (source) should be solved before b (target): pos[a]=%d pos[b]=%d", pos[a], pos[b])
	}
	if pos[b] >= pos[c] {
		t.Errorf("b (source) should be solved before c (target): pos[b]=%d pos[c]=%d", pos[b], pos[c])
	}
}

func TestOrderGroupsCycles(t *testing.T) {
	g := NewGraph()
	a, b := node(1), node(2)
	g.AddEdge(a, b, identity)
	g.AddEdge(b, a, identity)

	comps := components(g)
	var cyclic [][]flownode.Node
	for _, comp := range comps {
		if len(comp) > 1 {
			cyclic = append(cyclic, comp)
		}
	}
	if len(cyclic) != 1 || len(cyclic[0]) != 2 {
		t.Errorf("expected a and b in one 2-node SCC, got components %v", comps)
	}
}

func TestSolveSelfLoopConverges(t *testing.T) {
	g := NewGraph()
	a := node(1)
	// A self-loop that joins a with itself, rooted at a pinned Top
	// source, must still converge within maxSCCRounds.
	g.AddEdge(flownode.Top, a, func(l liveness.Live) liveness.Live { return l })
	g.AddEdge(a, a, func(l liveness.Live) liveness.Live { return l })

	live := Solve(g)
	if !live.Get(a).IsTop() {
		t.Errorf("a should converge to Top through its Top-pinned incoming edge")
	}
}

func TestGraphOutIn(t *testing.T) {
	g := NewGraph()
	a, b := node(1), node(2)
	g.AddEdge(a, b, identity)

	out := g.Out(a)
	if len(out) != 1 || out[0].target != b {
		t.Errorf("Out(a) should list one edge to b, got %v", out)
	}
	in := g.In(b)
	if len(in) != 1 || in[0].source != a {
		t.Errorf("In(b) should list one edge from a, got %v", in)
	}
}
