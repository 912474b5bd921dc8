package depgraph

import "github.com/cmtlang/deadvalue/internal/flownode"

// sccIndex holds the state of Tarjan's algorithm over the graph's forward (src→target)
// adjacency. A component is popped only once every component it can
// still reach has already been popped, so Tarjan's raw output lists a
// target before the sources that point to it — see order() for why
// the liveness solver needs the opposite.
type sccIndex struct {
	index   map[flownode.Node]int
	lowlink map[flownode.Node]int
	onStack map[flownode.Node]bool
	stack   []flownode.Node
	next    int
	comps   [][]flownode.Node
}

// components returns every SCC of g, in the order Tarjan discovers
// them (each component's nodes all fully contained; singletons
// included).
func components(g *Graph) [][]flownode.Node {
	s := &sccIndex{
		index:   make(map[flownode.Node]int),
		lowlink: make(map[flownode.Node]int),
		onStack: make(map[flownode.Node]bool),
	}
	for _, n := range g.Nodes() {
		if _, seen := s.index[n]; !seen {
			s.strongconnect(g, n)
		}
	}
	return s.comps
}

func (s *sccIndex) strongconnect(g *Graph, v flownode.Node) {
	s.index[v] = s.next
	s.lowlink[v] = s.next
	s.next++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, e := range g.Out(v) {
		w := e.target
		if _, seen := s.index[w]; !seen {
			s.strongconnect(g, w)
			if s.lowlink[w] < s.lowlink[v] {
				s.lowlink[v] = s.lowlink[w]
			}
		} else if s.onStack[w] {
			if s.index[w] < s.lowlink[v] {
				s.lowlink[v] = s.index[w]
			}
		}
	}

	if s.lowlink[v] == s.index[v] {
		var comp []flownode.Node
		for {
			n := len(s.stack) - 1
			w := s.stack[n]
			s.stack = s.stack[:n]
			s.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		s.comps = append(s.comps, comp)
	}
}

// order returns every SCC in the order the liveness solver must visit
// them: spec.md §4.6 step 3 computes M[target] as a join over
// incoming edges of f(M[src]), so every src-SCC must be solved before
// the target-SCC(s) its edges point to. Tarjan's raw component order
// lists targets before their sources (see components' doc comment),
// so reversing it yields src-before-target — spec.md §4.6 step 2's
// "reverse topological order (sinks first)", read against this
// graph's consumer→producer edge direction.
func order(g *Graph) [][]flownode.Node {
	comps := components(g)
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}
	return comps
}
