// Package execctx provides the dependency-injection seam between the task
// executors and whatever authoritative state store hosts the run (a
// reactive UI store or a plain in-memory map). It exists so the same
// executor code runs unmodified whether the engine is driven interactively
// or headlessly (spec.md §4.1).
package execctx

import (
	"context"

	"github.com/weavelane/llmflow/pkg/types"
)

// Context is the contract executors see. It holds no copies: every getter
// returns the implementation's current state, and every setter delta-merges
// into that state rather than replacing it wholesale.
type Context interface {
	// Graph snapshot, read-only at call time.
	GetNode(id string) (types.Node, bool)
	GetNodes() []types.Node
	GetEdges() []types.Edge

	// Results accumulate keyed by node id; SetResults never replaces the
	// whole map, it merges delta's keys into it.
	GetResult(id string) (types.ExecutionResult, bool)
	GetResults() map[string]types.ExecutionResult
	SetResults(delta map[string]types.ExecutionResult)

	// UpdateNodeData shallow-merges partial into the node's data blob —
	// used for status badges (queueStatus, isExecuting, lastError, and
	// per-kind output fields).
	UpdateNodeData(id string, partial map[string]interface{})

	// Variables.
	GetVariables() map[string]types.Variable
	AddVariable(name, value, description, folder string)
	UpdateVariable(name, value string)

	// Interpolate replaces every "{{name}}" in template using the current
	// variable table (pkg/interpolate).
	Interpolate(template string) string

	// ExecuteNode is the recursive entry point some executors may use; in
	// practice rarely needed since the queue manager drives execution.
	ExecuteNode(ctx context.Context, id string) error

	IsExecuting() bool
	SetExecuting(executing bool)
}

// Executor is implemented by whatever drives ExecuteNode — the queue
// manager, in practice. Kept as a narrow interface to avoid execctx
// importing the queue package (which imports execctx).
type Executor interface {
	ExecuteNode(ctx context.Context, id string) error
}
