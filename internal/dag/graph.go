// Package dag provides the step-ordering graph shared by the OML
// validator (acyclicity checking) and the compiler (topological
// ordering). It is adapted from the teacher's internal/engine.Graph,
// generalized from config.Step vertices to plain string step ids so
// both callers can attach their own per-step data.
package dag

import (
	"fmt"
	"sort"

	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Node is a vertex in the step graph.
type Node struct {
	ID         string
	Dependents []*Node
	DependsOn  []*Node
}

// Graph is a directed graph of step ids with topological levels computed
// via Kahn's algorithm.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a step id as a vertex. Duplicate ids are rejected.
func (g *Graph) AddNode(id string) (*Node, error) {
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if _, exists := g.Nodes[id]; exists {
		return nil, streamyerrors.NewValidationError("steps", fmt.Sprintf("duplicate step id %q", id), nil)
	}
	node := &Node{ID: id}
	g.Nodes[id] = node
	return node, nil
}

// AddEdge records that "to" needs "from" to run first.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return streamyerrors.NewValidationError("steps", fmt.Sprintf("unknown dependency %q", from), nil)
	}
	target, ok := g.Nodes[to]
	if !ok {
		return streamyerrors.NewValidationError("steps", fmt.Sprintf("unknown dependency target %q", to), nil)
	}
	source.Dependents = append(source.Dependents, target)
	target.DependsOn = append(target.DependsOn, source)
	return nil
}

// TopologicalSort computes level-batched topological order using Kahn's
// algorithm, breaking ties within a level lexicographically. Callers that
// need authored-order tie-breaking (the compiler and both runners) use
// StableOrder instead; this keeps TopologicalSort deterministic and
// free of any notion of "authored order".
func (g *Graph) TopologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, node := range g.Nodes {
		for _, dep := range node.Dependents {
			indegree[dep.ID]++
		}
	}

	var queue []string
	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)

		var next []string
		for _, id := range level {
			processed++
			for _, dependent := range g.Nodes[id].Dependents {
				indegree[dependent.ID]--
				if indegree[dependent.ID] == 0 {
					next = append(next, dependent.ID)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if processed != len(g.Nodes) {
		return streamyerrors.NewValidationError("steps", "cycle detected among step needs references", nil)
	}
	g.Levels = levels
	return nil
}

// StableOrder computes a single flat topological order of every node,
// breaking ties between simultaneously-ready nodes by their position in
// authoredOrder rather than lexicographically. This is what the compiler
// uses to satisfy "topological order, ties broken by authored order" —
// the level-batched TopologicalSort above exists separately as the seam
// a future parallel-siblings revision would fan out within.
func (g *Graph) StableOrder(authoredOrder []string) ([]string, error) {
	position := make(map[string]int, len(authoredOrder))
	for i, id := range authoredOrder {
		position[id] = i
	}

	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, node := range g.Nodes {
		for _, dep := range node.Dependents {
			indegree[dep.ID]++
		}
	}

	ready := make([]string, 0, len(g.Nodes))
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range g.Nodes[next].Dependents {
			indegree[dependent.ID]--
			if indegree[dependent.ID] == 0 {
				ready = append(ready, dependent.ID)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, streamyerrors.NewValidationError("steps", "cycle detected among step needs references", nil)
	}
	return order, nil
}
