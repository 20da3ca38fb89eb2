package executor

import (
	"context"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/types"
)

// ModelProviderExecutor is a configuration carrier, never a network
// caller: it validates that provider and model are present and emits its
// full config blob (secrets included) as the result so LLMChain can
// locate it by groupId (spec.md §4.3). Failures here are permanent —
// ModelProvider is never wrapped in RetryPolicy.
type ModelProviderExecutor struct{}

func (e *ModelProviderExecutor) CanExecute(node types.Node) bool {
	return node.Kind == types.KindModelProvider
}

func (e *ModelProviderExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	start := time.Now()

	provider, _ := node.Data["provider"].(string)
	if provider == "" {
		writeResult(ectx, node, withDuration(configError(node, "No provider selected"), start))
		return nil
	}

	model, _ := node.Data["model"].(string)
	if model == "" {
		writeResult(ectx, node, withDuration(configError(node, "No model selected"), start))
		return nil
	}

	writeResult(ectx, node, types.ExecutionResult{
		Success:    true,
		Output:     node.Data,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return nil
}

func withDuration(r types.ExecutionResult, start time.Time) types.ExecutionResult {
	r.DurationMS = time.Since(start).Milliseconds()
	return r
}

// GroupID extracts the integer groupId a ModelProvider node was
// configured with. LLMChain uses this to match a chain's modelGroup to
// the provider node carrying its configuration.
func GroupID(node types.Node) (int, bool) {
	switch v := node.Data["groupId"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// FindProvider locates the ModelProvider node whose groupId matches
// modelGroup among the execution context's current nodes.
func FindProvider(ectx execctx.Context, modelGroup int) (types.Node, bool) {
	for _, n := range ectx.GetNodes() {
		if n.Kind != types.KindModelProvider {
			continue
		}
		if gid, ok := GroupID(n); ok && gid == modelGroup {
			return n, true
		}
	}
	return types.Node{}, false
}
