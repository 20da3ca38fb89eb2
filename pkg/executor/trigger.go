package executor

import (
	"context"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/types"
)

// TriggerExecutor produces no payload; it exists as an in-degree-0 seed
// for the dependency graph (spec.md §4.3).
type TriggerExecutor struct{}

func (e *TriggerExecutor) CanExecute(node types.Node) bool {
	return node.Kind == types.KindTrigger
}

func (e *TriggerExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	start := time.Now()
	writeResult(ectx, node, types.ExecutionResult{
		Success:    true,
		Output:     map[string]interface{}{"type": "trigger", "triggered": true},
		DurationMS: time.Since(start).Milliseconds(),
	})
	return nil
}
