// Package graph provides DAG operations for workflow execution: topological
// sorting, in-degree/adjacency derivation, and connected/isolated node
// discovery. Adapted from the teacher engine's Kahn's-algorithm
// implementation, generalized to also report the "start set" and the
// connected/isolated partition the planner needs for priority assignment.
package graph

import (
	"fmt"
	"sort"

	"github.com/weavelane/llmflow/pkg/types"
)

// Graph represents a workflow graph with nodes and edges.
type Graph struct {
	nodes []types.Node
	edges []types.Edge

	byID      map[string]*types.Node
	adjacency map[string][]string // source -> successors
	inbound   map[string][]string // target -> predecessors
	inDegree  map[string]int
}

// New builds a Graph from nodes and edges, collapsing multigraph
// duplicates to one dependency per distinct (source, target) pair.
func New(nodes []types.Node, edges []types.Edge) *Graph {
	g := &Graph{
		nodes:     nodes,
		byID:      make(map[string]*types.Node, len(nodes)),
		adjacency: make(map[string][]string, len(nodes)),
		inbound:   make(map[string][]string, len(nodes)),
		inDegree:  make(map[string]int, len(nodes)),
	}

	for i := range nodes {
		g.byID[nodes[i].ID] = &nodes[i]
		g.inDegree[nodes[i].ID] = 0
	}

	seen := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		key := [2]string{e.Source, e.Target}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.edges = append(g.edges, e)
		g.adjacency[e.Source] = append(g.adjacency[e.Source], e.Target)
		g.inbound[e.Target] = append(g.inbound[e.Target], e.Source)
		g.inDegree[e.Target]++
	}

	return g
}

// GetNode retrieves a node by id, or nil if absent.
func (g *Graph) GetNode(id string) *types.Node {
	return g.byID[id]
}

// Dependencies returns the direct predecessor node ids of id.
func (g *Graph) Dependencies(id string) []string {
	return g.inbound[id]
}

// Successors returns the direct successor node ids of id.
func (g *Graph) Successors(id string) []string {
	return g.adjacency[id]
}

// InDegree returns the number of distinct predecessors of id.
func (g *Graph) InDegree(id string) int {
	return g.inDegree[id]
}

// Nodes returns every node in the graph, in input order.
func (g *Graph) Nodes() []types.Node {
	return g.nodes
}

// TopologicalSort orders node ids using Kahn's algorithm. Ties among
// simultaneously-ready nodes are broken by node id for determinism. Nodes
// on a cycle never reach in-degree zero, so for a graph with cycles the
// order comes up short and TopologicalSort returns a nil order and an
// error for the whole graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.inDegree))
	for k, v := range g.inDegree {
		inDegree[k] = v
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var freed []string
		for _, next := range g.adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				freed = append(freed, next)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph: workflow contains cycles (circular dependencies)")
	}
	return order, nil
}

// StartSet returns the ids of every node with in-degree zero — the seeds
// for the planner's connected-reachability BFS.
func (g *Graph) StartSet() []string {
	var start []string
	for _, n := range g.nodes {
		if g.inDegree[n.ID] == 0 {
			start = append(start, n.ID)
		}
	}
	sort.Strings(start)
	return start
}

// Connected returns the set of node ids reachable by following edges
// forward from any in-degree-zero start node (spec.md §4.6 step 5).
func (g *Graph) Connected() map[string]bool {
	visited := make(map[string]bool, len(g.nodes))
	var queue []string
	for _, id := range g.StartSet() {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// Isolated returns node ids with some degree (in or out) that the
// connected-reachability BFS did not reach: self-contained islands that
// are not seeded from an in-degree-zero start node reaching them (e.g.
// members of a cycle with no external entry point).
func (g *Graph) Isolated() []string {
	connected := g.Connected()
	var isolated []string
	for _, n := range g.nodes {
		if connected[n.ID] {
			continue
		}
		if g.inDegree[n.ID] > 0 || len(g.adjacency[n.ID]) > 0 {
			isolated = append(isolated, n.ID)
		}
	}
	sort.Strings(isolated)
	return isolated
}
