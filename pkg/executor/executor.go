// Package executor implements the TaskExecutor strategy pattern: one
// interface, a thread-safe registry keyed by node kind, and five concrete
// implementations (Trigger, Note, ModelProvider, LLMChain, OutputSender).
// Adapted from the teacher's pkg/executor NodeExecutor/Registry pattern,
// re-targeted from its generic ETL node catalog onto the LLM-pipeline
// kinds this engine actually runs.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/types"
)

// TaskExecutor is the strategy interface for one node kind.
type TaskExecutor interface {
	// CanExecute reports whether this executor handles node's kind.
	CanExecute(node types.Node) bool

	// Execute performs the node's side effects and writes its
	// ExecutionResult through ctx.SetResults. A returned error indicates a
	// bug escaping the executor's own retry wrapper (spec.md §7, kind 6);
	// ordinary task failures are communicated via a failed ExecutionResult,
	// not a Go error return.
	Execute(ctx context.Context, ectx execctx.Context, node types.Node) error
}

// Registry dispatches a node to the TaskExecutor registered for its kind.
type Registry struct {
	mu        sync.RWMutex
	executors []TaskExecutor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an executor. Order matters only in that the first
// executor whose CanExecute matches wins; kinds are expected to be
// mutually exclusive so this rarely comes up.
func (r *Registry) Register(exec TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors = append(r.executors, exec)
}

// Lookup returns the executor for node, or ok=false if the kind is inert
// (the planner should not enqueue such nodes, but run_item treats a
// miss as a trivial success rather than an error; spec.md §4.5).
func (r *Registry) Lookup(node types.Node) (TaskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.executors {
		if e.CanExecute(node) {
			return e, true
		}
	}
	return nil, false
}

// Execute dispatches node to its registered executor, tracking the
// isExecuting re-entry guard spec.md §4.3 requires: a node already marked
// isExecuting in the node data blob is skipped as a no-op.
func (r *Registry) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	exec, ok := r.Lookup(node)
	if !ok {
		ectx.SetResults(map[string]types.ExecutionResult{
			node.ID: {Success: true, DurationMS: 0},
		})
		return nil
	}

	if isExecuting, _ := node.Data["isExecuting"].(bool); isExecuting {
		return nil
	}

	ectx.UpdateNodeData(node.ID, map[string]interface{}{"isExecuting": true})
	defer ectx.UpdateNodeData(node.ID, map[string]interface{}{"isExecuting": false})

	return exec.Execute(ctx, ectx, node)
}

// writeResult is the common tail every kind implementation calls: merge
// the ExecutionResult and mirror a status summary onto the node's data
// blob for UI badges (spec.md §4.3).
func writeResult(ectx execctx.Context, node types.Node, result types.ExecutionResult) {
	ectx.SetResults(map[string]types.ExecutionResult{node.ID: result})

	badge := map[string]interface{}{
		"timestamp": time.Now(),
	}
	if result.Success {
		badge["lastError"] = ""
	} else {
		badge["lastError"] = result.Error
	}
	ectx.UpdateNodeData(node.ID, badge)
}

func configError(node types.Node, format string, args ...interface{}) types.ExecutionResult {
	return types.ExecutionResult{Success: false, Error: fmt.Sprintf(format, args...)}
}
