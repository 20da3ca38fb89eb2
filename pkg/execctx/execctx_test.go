package execctx

import (
	"context"
	"testing"

	"github.com/weavelane/llmflow/pkg/types"
	"github.com/weavelane/llmflow/pkg/variables"
)

func TestStandalone_GetNodeAndGetNodes(t *testing.T) {
	nodes := []types.Node{
		{ID: "n1", Kind: types.KindTrigger},
		{ID: "n2", Kind: types.KindNote},
	}
	s := NewStandalone(nodes, nil, variables.New())

	got, ok := s.GetNode("n1")
	if !ok || got.Kind != types.KindTrigger {
		t.Fatalf("GetNode(n1) = %+v, ok=%v", got, ok)
	}
	if _, ok := s.GetNode("missing"); ok {
		t.Fatal("expected GetNode(missing) to report ok=false")
	}
	if len(s.GetNodes()) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(s.GetNodes()))
	}
}

// TestStandalone_SetResultsMergesDelta exercises spec.md §5's ordering
// guarantee: SetResults never replaces the whole map, concurrent deltas
// compose by key.
func TestStandalone_SetResultsMergesDelta(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())

	s.SetResults(map[string]types.ExecutionResult{"a": {Success: true}})
	s.SetResults(map[string]types.ExecutionResult{"b": {Success: false, Error: "boom"}})

	results := s.GetResults()
	if len(results) != 2 {
		t.Fatalf("expected both deltas to survive, got %+v", results)
	}
	if !results["a"].Success {
		t.Errorf("expected a to remain successful after a later delta for a different key, got %+v", results["a"])
	}
	if results["b"].Error != "boom" {
		t.Errorf("expected b's error to be recorded, got %+v", results["b"])
	}
}

func TestStandalone_UpdateNodeDataShallowMerges(t *testing.T) {
	s := NewStandalone([]types.Node{{ID: "n1", Data: map[string]interface{}{"existing": "keep"}}}, nil, variables.New())

	s.UpdateNodeData("n1", map[string]interface{}{"queueStatus": "executing"})
	node, _ := s.GetNode("n1")
	if node.Data["existing"] != "keep" {
		t.Errorf("expected shallow merge to preserve existing fields, got %+v", node.Data)
	}
	if node.Data["queueStatus"] != "executing" {
		t.Errorf("expected queueStatus to be set, got %+v", node.Data)
	}
}

func TestStandalone_UpdateNodeDataOnMissingNodeIsNoop(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())
	s.UpdateNodeData("missing", map[string]interface{}{"x": 1}) // must not panic
}

func TestStandalone_VariablesAndInterpolate(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())
	s.AddVariable("name", "Ada", "", "")

	if got := s.Interpolate("hello {{name}}"); got != "hello Ada" {
		t.Errorf("Interpolate() = %q, want %q", got, "hello Ada")
	}

	s.UpdateVariable("name", "Grace")
	if got := s.Interpolate("hello {{name}}"); got != "hello Grace" {
		t.Errorf("after UpdateVariable, Interpolate() = %q, want %q", got, "hello Grace")
	}

	if _, ok := s.GetVariables()["name"]; !ok {
		t.Error("expected GetVariables() to include name")
	}
}

func TestStandalone_IsExecutingFlag(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())
	if s.IsExecuting() {
		t.Fatal("expected IsExecuting() to start false")
	}
	s.SetExecuting(true)
	if !s.IsExecuting() {
		t.Fatal("expected IsExecuting() to report true after SetExecuting(true)")
	}
}

type fakeStandaloneExecutor struct{ calls []string }

func (f *fakeStandaloneExecutor) ExecuteNode(ctx context.Context, id string) error {
	f.calls = append(f.calls, id)
	return nil
}

func TestStandalone_ExecuteNodeDelegatesToWiredExecutor(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())
	exec := &fakeStandaloneExecutor{}
	s.SetExecutor(exec)

	if err := s.ExecuteNode(context.Background(), "n1"); err != nil {
		t.Fatalf("ExecuteNode() error = %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0] != "n1" {
		t.Errorf("expected the wired executor to be invoked with n1, got %+v", exec.calls)
	}
}

func TestStandalone_ExecuteNodeWithoutWiredExecutorIsNoop(t *testing.T) {
	s := NewStandalone(nil, nil, variables.New())
	if err := s.ExecuteNode(context.Background(), "n1"); err != nil {
		t.Fatalf("ExecuteNode() error = %v, want nil when no executor is wired", err)
	}
}

// TestLive_ForwardsToBindings exercises the Live adapter: every Context
// method must be a direct pass-through onto HostBindings, never a copy.
func TestLive_ForwardsToBindings(t *testing.T) {
	var addCalls []string
	var updateCalls []string
	var nodeDataCalls []string

	bindings := HostBindings{
		GetNode: func(id string) (types.Node, bool) {
			if id == "n1" {
				return types.Node{ID: "n1", Kind: types.KindTrigger}, true
			}
			return types.Node{}, false
		},
		GetNodes: func() []types.Node { return []types.Node{{ID: "n1"}} },
		GetEdges: func() []types.Edge { return []types.Edge{{Source: "n1", Target: "n2"}} },
		GetResult: func(id string) (types.ExecutionResult, bool) {
			return types.ExecutionResult{Success: true}, true
		},
		GetResults: func() map[string]types.ExecutionResult {
			return map[string]types.ExecutionResult{"n1": {Success: true}}
		},
		SetResults: func(delta map[string]types.ExecutionResult) {},
		UpdateNodeData: func(id string, partial map[string]interface{}) {
			nodeDataCalls = append(nodeDataCalls, id)
		},
		GetVariables: func() map[string]types.Variable { return map[string]types.Variable{} },
		AddVariable: func(name, value, description, folder string) {
			addCalls = append(addCalls, name)
		},
		UpdateVariable: func(name, value string) {
			updateCalls = append(updateCalls, name)
		},
		Interpolate:  func(template string) string { return "interpolated:" + template },
		IsExecuting:  func() bool { return true },
		SetExecuting: func(executing bool) {},
	}

	l := NewLive(bindings)

	if node, ok := l.GetNode("n1"); !ok || node.Kind != types.KindTrigger {
		t.Errorf("GetNode forwarding failed: %+v, ok=%v", node, ok)
	}
	if len(l.GetNodes()) != 1 {
		t.Error("GetNodes forwarding failed")
	}
	if len(l.GetEdges()) != 1 {
		t.Error("GetEdges forwarding failed")
	}
	if _, ok := l.GetResult("n1"); !ok {
		t.Error("GetResult forwarding failed")
	}
	if len(l.GetResults()) != 1 {
		t.Error("GetResults forwarding failed")
	}
	l.AddVariable("x", "1", "", "")
	l.UpdateVariable("x", "2")
	if len(addCalls) != 1 || len(updateCalls) != 1 {
		t.Errorf("expected variable writes to forward, got add=%v update=%v", addCalls, updateCalls)
	}
	if got := l.Interpolate("{{x}}"); got != "interpolated:{{x}}" {
		t.Errorf("Interpolate forwarding failed: %q", got)
	}
	if !l.IsExecuting() {
		t.Error("IsExecuting forwarding failed")
	}
	l.UpdateNodeData("n1", map[string]interface{}{"k": "v"})
	if len(nodeDataCalls) != 1 {
		t.Error("UpdateNodeData forwarding failed")
	}
}

func TestLive_ExecuteNodeWithoutWiredExecutorIsNoop(t *testing.T) {
	l := NewLive(HostBindings{})
	if err := l.ExecuteNode(context.Background(), "n1"); err != nil {
		t.Fatalf("ExecuteNode() error = %v, want nil when no executor is wired", err)
	}
}
