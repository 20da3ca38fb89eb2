package execctx

import (
	"context"

	"github.com/weavelane/llmflow/pkg/types"
)

// HostBindings is the set of callbacks a live (interactive) host supplies
// onto its own authoritative state — a reactive store in the UI process,
// typically. Live owns none of this data; it is a pure pass-through, which
// is what lets one process run many concurrent interactive sessions
// without the engine accidentally sharing state between them (spec.md
// §4.1, §9: "the one global queue manager of the source must become
// one-per-run").
type HostBindings struct {
	GetNode  func(id string) (types.Node, bool)
	GetNodes func() []types.Node
	GetEdges func() []types.Edge

	GetResult  func(id string) (types.ExecutionResult, bool)
	GetResults func() map[string]types.ExecutionResult
	SetResults func(delta map[string]types.ExecutionResult)

	UpdateNodeData func(id string, partial map[string]interface{})

	GetVariables   func() map[string]types.Variable
	AddVariable    func(name, value, description, folder string)
	UpdateVariable func(name, value string)

	Interpolate func(template string) string

	IsExecuting  func() bool
	SetExecuting func(executing bool)
}

// Live adapts HostBindings to the Context interface. It is the
// "store-backed" implementation spec.md §4.1 calls for: every method is a
// direct forward onto the host's callback, so the host's store remains
// the single source of truth and the UI observes engine-driven mutations
// through its own normal reactivity.
type Live struct {
	bindings HostBindings
	executor Executor
}

// NewLive wraps bindings as a Context. executor is wired separately via
// SetExecutor to avoid execctx depending on the queue package.
func NewLive(bindings HostBindings) *Live {
	return &Live{bindings: bindings}
}

// SetExecutor wires the callback used by ExecuteNode.
func (l *Live) SetExecutor(e Executor) {
	l.executor = e
}

func (l *Live) GetNode(id string) (types.Node, bool)        { return l.bindings.GetNode(id) }
func (l *Live) GetNodes() []types.Node                      { return l.bindings.GetNodes() }
func (l *Live) GetEdges() []types.Edge                      { return l.bindings.GetEdges() }
func (l *Live) GetResult(id string) (types.ExecutionResult, bool) {
	return l.bindings.GetResult(id)
}
func (l *Live) GetResults() map[string]types.ExecutionResult { return l.bindings.GetResults() }
func (l *Live) SetResults(delta map[string]types.ExecutionResult) {
	l.bindings.SetResults(delta)
}
func (l *Live) UpdateNodeData(id string, partial map[string]interface{}) {
	l.bindings.UpdateNodeData(id, partial)
}
func (l *Live) GetVariables() map[string]types.Variable { return l.bindings.GetVariables() }
func (l *Live) AddVariable(name, value, description, folder string) {
	l.bindings.AddVariable(name, value, description, folder)
}
func (l *Live) UpdateVariable(name, value string) { l.bindings.UpdateVariable(name, value) }
func (l *Live) Interpolate(template string) string { return l.bindings.Interpolate(template) }

func (l *Live) ExecuteNode(ctx context.Context, id string) error {
	if l.executor == nil {
		return nil
	}
	return l.executor.ExecuteNode(ctx, id)
}

func (l *Live) IsExecuting() bool          { return l.bindings.IsExecuting() }
func (l *Live) SetExecuting(executing bool) { l.bindings.SetExecuting(executing) }
