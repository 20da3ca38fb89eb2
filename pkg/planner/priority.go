package planner

import (
	"github.com/weavelane/llmflow/pkg/graph"
	"github.com/weavelane/llmflow/pkg/types"
)

// Priority bases, connected vs. isolated (spec.md §4.5). "input" has no
// literal NodeKind in this engine's kind set (trigger / note / modelProvider
// / basicLLMChain / outputSender); ModelProvider is the closest analogue —
// the node that carries a chain's upstream configuration — so it takes the
// "input" base. See DESIGN.md for the recorded Open Question decision.
const (
	connectedTriggerBase = 2000
	connectedInputBase   = 1800
	connectedElseBase    = 1200

	isolatedTriggerBase = 900
	isolatedInputBase   = 800
	isolatedElseBase    = 400
)

// ComputePriorities assigns every node in g a scheduling priority per
// spec.md §4.5/§4.6: base (by kind and connected/isolated membership) plus
// a rank that favors topologically earlier nodes. It also returns the
// enqueue order step 7 requires: every connected node first, then every
// isolated one, each group in topological order.
//
// A graph with cycles has no topological order (pkg/graph.TopologicalSort
// returns an error for the whole graph, not just the cyclic island); when
// that happens this falls back to the graph's input node order for rank
// purposes only. Cyclic nodes still never resolve their dependencies and
// fail naturally via the queue manager's "Dependency cycle or unresolvable
// dependency" path (spec.md §9) — the fallback only keeps priority
// assignment itself from erroring out on an otherwise-valid acyclic region
// sharing the graph with an unrelated cycle.
func ComputePriorities(g *graph.Graph) (priorities map[string]int, enqueueOrder []string) {
	connected := g.Connected()
	isolatedSet := make(map[string]bool)
	for _, id := range g.Isolated() {
		isolatedSet[id] = true
	}

	order, err := g.TopologicalSort()
	if err != nil {
		order = fallbackOrder(g)
	}

	var connectedOrder, isolatedOrder []string
	for _, id := range order {
		switch {
		case connected[id]:
			connectedOrder = append(connectedOrder, id)
		case isolatedSet[id]:
			isolatedOrder = append(isolatedOrder, id)
		}
	}

	priorities = make(map[string]int, len(connectedOrder)+len(isolatedOrder))
	assignPhase(g, priorities, connectedOrder, connectedTriggerBase, connectedInputBase, connectedElseBase)
	assignPhase(g, priorities, isolatedOrder, isolatedTriggerBase, isolatedInputBase, isolatedElseBase)

	enqueueOrder = append(append([]string(nil), connectedOrder...), isolatedOrder...)
	return priorities, enqueueOrder
}

func assignPhase(g *graph.Graph, priorities map[string]int, ids []string, triggerBase, inputBase, elseBase int) {
	n := len(ids)
	for i, id := range ids {
		rank := n - i
		base := elseBase
		if node := g.GetNode(id); node != nil {
			switch node.Kind {
			case types.KindTrigger:
				base = triggerBase
			case types.KindModelProvider:
				base = inputBase
			}
		}
		priorities[id] = base + rank
	}
}

// fallbackOrder returns every node id in the graph's original input order,
// used only when TopologicalSort fails because the graph contains a cycle
// somewhere.
func fallbackOrder(g *graph.Graph) []string {
	nodes := g.Nodes()
	order := make([]string, len(nodes))
	for i, n := range nodes {
		order[i] = n.ID
	}
	return order
}
