package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/weavelane/llmflow/pkg/types"
)

// RunSnapshot is the minimal state a caller needs to resume a workflow
// later as an incremental re-run (spec.md §4.6 step 3's
// completed_node_ids, generalized into a portable record so a headless
// caller can persist it between process invocations without reaching into
// the queue manager or execution context directly).
type RunSnapshot struct {
	WorkflowID       string                            `json:"workflow_id,omitempty"`
	CompletedNodeIDs []string                          `json:"completed_node_ids"`
	Results          map[string]types.ExecutionResult `json:"results"`
	Variables        map[string]types.Variable        `json:"variables"`
	TakenAt          time.Time                        `json:"taken_at"`
}

// Snapshot builds a RunSnapshot from a completed or partially-completed
// run's results and variable table.
func Snapshot(workflowID string, results map[string]types.ExecutionResult, vars map[string]types.Variable, takenAt time.Time) RunSnapshot {
	ids := make([]string, 0, len(results))
	for id, result := range results {
		if result.Success {
			ids = append(ids, id)
		}
	}
	return RunSnapshot{
		WorkflowID:       workflowID,
		CompletedNodeIDs: ids,
		Results:          results,
		Variables:        vars,
		TakenAt:          takenAt,
	}
}

// Marshal serializes the snapshot as plain JSON.
func (s RunSnapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot parses a RunSnapshot previously produced by Marshal.
func UnmarshalSnapshot(data []byte) (RunSnapshot, error) {
	var s RunSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return RunSnapshot{}, fmt.Errorf("unmarshal run snapshot: %w", err)
	}
	return s, nil
}

// AsPriorResults returns only the successful results, the shape
// RunRequest.PriorResults expects for a skip-completed resume.
func (s RunSnapshot) AsPriorResults() map[string]types.ExecutionResult {
	prior := make(map[string]types.ExecutionResult, len(s.CompletedNodeIDs))
	for _, id := range s.CompletedNodeIDs {
		if result, ok := s.Results[id]; ok {
			prior[id] = result
		}
	}
	return prior
}

// AsVariableSeeds flattens a snapshot's variable table back into the plain
// name->value map RunRequest.Variables expects.
func (s RunSnapshot) AsVariableSeeds() map[string]string {
	seeds := make(map[string]string, len(s.Variables))
	for name, v := range s.Variables {
		seeds[name] = v.Value
	}
	return seeds
}
