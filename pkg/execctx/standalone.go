package execctx

import (
	"context"
	"sync"

	"github.com/weavelane/llmflow/pkg/interpolate"
	"github.com/weavelane/llmflow/pkg/types"
	"github.com/weavelane/llmflow/pkg/variables"
)

// Standalone is the in-memory ExecutionContext implementation used by the
// headless driver: nodes/edges live in plain slices, results and node-data
// overlays live in plain maps, all guarded by one mutex. There is no
// reactive store underneath — this is the "host" for batch runs.
type Standalone struct {
	mu sync.RWMutex

	nodes []types.Node
	edges []types.Edge
	byID  map[string]int // node id -> index into nodes, for in-place data updates

	results   map[string]types.ExecutionResult
	vars      *variables.Store
	executing bool

	executor Executor
}

// NewStandalone creates a fresh in-memory ExecutionContext over the given
// graph snapshot and variable store. executor is used by ExecuteNode; it
// is normally the queue manager, wired in after construction via
// SetExecutor to break the import cycle between execctx and queue.
func NewStandalone(nodes []types.Node, edges []types.Edge, vars *variables.Store) *Standalone {
	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
	}
	return &Standalone{
		nodes:   append([]types.Node(nil), nodes...),
		edges:   append([]types.Edge(nil), edges...),
		byID:    byID,
		results: make(map[string]types.ExecutionResult),
		vars:    vars,
	}
}

// SetExecutor wires the callback used by ExecuteNode.
func (s *Standalone) SetExecutor(e Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = e
}

func (s *Standalone) GetNode(id string) (types.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return types.Node{}, false
	}
	return s.nodes[idx], true
}

func (s *Standalone) GetNodes() []types.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

func (s *Standalone) GetEdges() []types.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

func (s *Standalone) GetResult(id string) (types.ExecutionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

func (s *Standalone) GetResults() map[string]types.ExecutionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.ExecutionResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// SetResults merges delta into the results map key-wise. Concurrent
// callers compose: a call never drops keys written by a different,
// concurrent call (spec.md §5 ordering guarantees).
func (s *Standalone) SetResults(delta map[string]types.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.results[k] = v
	}
}

// UpdateNodeData shallow-merges partial into the node's data blob.
func (s *Standalone) UpdateNodeData(id string, partial map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	if s.nodes[idx].Data == nil {
		s.nodes[idx].Data = make(map[string]interface{}, len(partial))
	}
	for k, v := range partial {
		s.nodes[idx].Data[k] = v
	}
}

func (s *Standalone) GetVariables() map[string]types.Variable {
	return s.vars.All()
}

func (s *Standalone) AddVariable(name, value, description, folder string) {
	s.vars.Add(name, value, description, folder)
}

func (s *Standalone) UpdateVariable(name, value string) {
	s.vars.Add(name, value, "", "")
}

// Interpolate delegates to pkg/interpolate, threading through the
// underlying variable store via the resolver adapter.
func (s *Standalone) Interpolate(template string) string {
	return interpolate.Interpolate(template, s.vars)
}

func (s *Standalone) ExecuteNode(ctx context.Context, id string) error {
	s.mu.RLock()
	exec := s.executor
	s.mu.RUnlock()
	if exec == nil {
		return nil
	}
	return exec.ExecuteNode(ctx, id)
}

func (s *Standalone) IsExecuting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executing
}

func (s *Standalone) SetExecuting(executing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executing = executing
}
