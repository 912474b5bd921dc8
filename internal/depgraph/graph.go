// Package depgraph implements spec.md §4.5 (the dependency collector)
// and §4.6 (the liveness solver): it turns the closure solver's fixed
// point into a graph of flow nodes whose edges carry monotone
// Live→Live transformers, then solves it by SCC in reverse topological
// order.
package depgraph

import (
	"github.com/cmtlang/deadvalue/internal/flownode"
	"github.com/cmtlang/deadvalue/internal/liveness"
)

// Transform is an edge's monotone Live→Live function (spec.md §3's
// "Dependency graph (G)").
type Transform func(liveness.Live) liveness.Live

func identity(l liveness.Live) liveness.Live { return l }

func constant(c liveness.Live) Transform {
	return func(liveness.Live) liveness.Live { return c }
}

type edgeTo struct {
	target    flownode.Node
	transform Transform
}

type edgeFrom struct {
	source    flownode.Node
	transform Transform
}

// Graph is the dependency graph: forward adjacency (by source, for SCC
// discovery) and reverse adjacency (by target, for the liveness
// update rule in spec.md §4.6 step 3, "join over incoming ... edges").
type Graph struct {
	forward map[flownode.Node][]edgeTo
	reverse map[flownode.Node][]edgeFrom
	nodes   map[flownode.Node]struct{}
}

func NewGraph() *Graph {
	g := &Graph{
		forward: make(map[flownode.Node][]edgeTo),
		reverse: make(map[flownode.Node][]edgeFrom),
		nodes:   make(map[flownode.Node]struct{}),
	}
	g.touch(flownode.Top)
	return g
}

func (g *Graph) touch(n flownode.Node) {
	g.nodes[n] = struct{}{}
}

// AddEdge records an edge src → target with the given transformer.
func (g *Graph) AddEdge(src, target flownode.Node, t Transform) {
	g.touch(src)
	g.touch(target)
	g.forward[src] = append(g.forward[src], edgeTo{target: target, transform: t})
	g.reverse[target] = append(g.reverse[target], edgeFrom{source: src, transform: t})
}

// Nodes returns every node touched by at least one edge, plus Top.
func (g *Graph) Nodes() []flownode.Node {
	out := make([]flownode.Node, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

func (g *Graph) Out(n flownode.Node) []edgeTo { return g.forward[n] }
func (g *Graph) In(n flownode.Node) []edgeFrom { return g.reverse[n] }
