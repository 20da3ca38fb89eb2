package executor

import (
	"context"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/types"
)

// NoteExecutor is documentation-only; it exists so the planner needn't
// special-case non-executing nodes when building the run (spec.md §4.3).
type NoteExecutor struct{}

func (e *NoteExecutor) CanExecute(node types.Node) bool {
	return node.Kind == types.KindNote
}

func (e *NoteExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	start := time.Now()
	writeResult(ectx, node, types.ExecutionResult{
		Success:    true,
		Output:     nil,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return nil
}
