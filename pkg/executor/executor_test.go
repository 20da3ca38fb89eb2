package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/llm"
	"github.com/weavelane/llmflow/pkg/types"
	"github.com/weavelane/llmflow/pkg/variables"
)

func newStandalone(nodes []types.Node, edges []types.Edge) *execctx.Standalone {
	return execctx.NewStandalone(nodes, edges, variables.New())
}

func TestModelProviderExecutor_ValidatesProviderAndModel(t *testing.T) {
	e := &ModelProviderExecutor{}

	cases := []struct {
		name    string
		data    map[string]interface{}
		wantErr string
	}{
		{"missing provider", map[string]interface{}{"model": "gpt-4"}, "No provider selected"},
		{"missing model", map[string]interface{}{"provider": "openai"}, "No model selected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := types.Node{ID: "mp1", Kind: types.KindModelProvider, Data: tc.data}
			ectx := newStandalone([]types.Node{node}, nil)
			if err := e.Execute(context.Background(), ectx, node); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			result, _ := ectx.GetResult("mp1")
			if result.Success {
				t.Fatal("expected failure")
			}
			if result.Error != tc.wantErr {
				t.Errorf("error = %q, want %q", result.Error, tc.wantErr)
			}
		})
	}
}

func TestModelProviderExecutor_SucceedsAndEmitsConfig(t *testing.T) {
	e := &ModelProviderExecutor{}
	data := map[string]interface{}{"provider": "openai", "model": "gpt-4", "groupId": 1}
	node := types.Node{ID: "mp1", Kind: types.KindModelProvider, Data: data}
	ectx := newStandalone([]types.Node{node}, nil)

	if err := e.Execute(context.Background(), ectx, node); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := ectx.GetResult("mp1")
	if !ok || !result.Success {
		t.Fatalf("expected success, got %+v (ok=%v)", result, ok)
	}
	out, ok := result.Output.(map[string]interface{})
	if !ok || out["provider"] != "openai" {
		t.Errorf("expected config passthrough, got %+v", result.Output)
	}
}

func TestMergeConsecutiveUser(t *testing.T) {
	in := []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleUser, Content: "b"},
		{Role: llm.RoleAssistant, Content: "reply"},
		{Role: llm.RoleUser, Content: "c"},
	}
	out := mergeConsecutiveUser(in)

	if len(out) != 4 {
		t.Fatalf("expected 4 merged messages, got %d: %+v", len(out), out)
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Role == llm.RoleUser && out[i].Role == llm.RoleUser {
			t.Fatalf("no two adjacent messages should both be role user, got %+v", out)
		}
	}
	wantMerged := "a" + stringRepeat("\n", 10) + "b"
	if out[1].Content != wantMerged {
		t.Errorf("merged content = %q, want %q", out[1].Content, wantMerged)
	}
}

func stringRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestAutoVariableName_UsesLabelWhenNotGeneric(t *testing.T) {
	node := types.Node{ID: "abcdef123456", Label: "greet"}
	if got := autoVariableName(node); got != "greet" {
		t.Errorf("autoVariableName() = %q, want %q", got, "greet")
	}
}

func TestAutoVariableName_SynthesizesForGenericLabel(t *testing.T) {
	node := types.Node{ID: "abcdef123456", Label: "Basic LLM Chain"}
	got := autoVariableName(node)
	want := "basic_llm_chain_123456"
	if got != want {
		t.Errorf("autoVariableName() = %q, want %q", got, want)
	}
}

func TestAutoVariableName_SynthesizesForEmptyLabel(t *testing.T) {
	node := types.Node{ID: "abcdef123456"}
	got := autoVariableName(node)
	want := "llm_output_123456"
	if got != want {
		t.Errorf("autoVariableName() = %q, want %q", got, want)
	}
}

// stubVariableWriter is an in-memory VariableWriter for exercising
// publishVariable's upsert rule without a full execctx.Context.
type stubVariableWriter struct {
	vars map[string]types.Variable
}

func newStubVariableWriter() *stubVariableWriter {
	return &stubVariableWriter{vars: map[string]types.Variable{}}
}

func (s *stubVariableWriter) GetVariables() map[string]types.Variable { return s.vars }
func (s *stubVariableWriter) AddVariable(name, value, description, folder string) {
	s.vars[name] = types.Variable{Name: name, Value: value, Description: description, Folder: folder}
}
func (s *stubVariableWriter) UpdateVariable(name, value string) {
	v := s.vars[name]
	v.Value = value
	s.vars[name] = v
}

func TestLLMChainExecutor_PublishVariable_UpsertKeepsFolder(t *testing.T) {
	vars := newStubVariableWriter()
	vars.vars["greet"] = types.Variable{Name: "greet", Value: "old", Folder: "outputs"}

	e := &LLMChainExecutor{Variables: vars}
	e.publishVariable(types.Node{ID: "n1", Label: "greet"}, "new response")

	got := vars.vars["greet"]
	if got.Value != "new response" {
		t.Errorf("value = %q, want %q", got.Value, "new response")
	}
	if got.Folder != "outputs" {
		t.Errorf("expected folder to survive upsert, got %q", got.Folder)
	}
}

// TestLLMChainExecutor_EndToEnd exercises scenario S1 (spec.md §8): an
// LLMChain whose prompt interpolates a variable, dispatched through an
// openai-style provider with a stubbed HTTP transport that upper-cases
// the prompt, must produce a successful result and auto-publish the
// response as a global variable named after the chain's label.
func TestLLMChainExecutor_EndToEnd(t *testing.T) {
	provider := types.Node{
		ID:   "provider1",
		Kind: types.KindModelProvider,
		Data: map[string]interface{}{"provider": "openai", "model": "gpt-4", "groupId": 1},
	}
	chain := types.Node{
		ID:    "chain1",
		Kind:  types.KindLLMChain,
		Label: "greet",
		Data: map[string]interface{}{
			"modelGroup": 1,
			"messages": []interface{}{
				map[string]interface{}{"role": "user", "content": "Say hi to {{name}}"},
			},
		},
	}
	ectx := newStandalone([]types.Node{provider, chain}, nil)
	ectx.AddVariable("name", "Ada", "", "")

	// Stub HTTP dispatch: decode the request's first message and reply
	// with its upper-cased, role-prefixed form, standing in for a real
	// provider round trip.
	dispatch := func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		var decoded struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, err
		}
		upper := strings.ToUpper(decoded.Messages[0].Role + ": " + decoded.Messages[0].Content)
		resp, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": upper}},
			},
		})
		return resp, nil
	}

	e := &LLMChainExecutor{Providers: llm.NewRegistry(dispatch), Variables: ectx}
	if err := e.Execute(context.Background(), ectx, chain); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	result, ok := ectx.GetResult("chain1")
	if !ok || !result.Success {
		t.Fatalf("expected success, got %+v (ok=%v)", result, ok)
	}
	out, _ := result.Output.(map[string]interface{})
	if out["response"] != "USER: SAY HI TO ADA" {
		t.Errorf("response = %q, want %q", out["response"], "USER: SAY HI TO ADA")
	}

	v, ok := ectx.GetVariables()["greet"]
	if !ok || v.Value != "USER: SAY HI TO ADA" {
		t.Fatalf("expected variable greet = USER: SAY HI TO ADA, got %+v (ok=%v)", v, ok)
	}
}

func TestOutputSenderExecutor_BatchMode(t *testing.T) {
	dir := t.TempDir()
	node := types.Node{
		ID:   "sender1",
		Kind: types.KindOutputSender,
		Data: map[string]interface{}{
			"reports": []interface{}{
				map[string]interface{}{"name": "Adapted Report", "variable": "adapted_report"},
				map[string]interface{}{"name": "Professional Report", "variable": "professional_report"},
				map[string]interface{}{"name": "Aggregate Score Profile", "variable": "aggregate_score_profile"},
			},
		},
	}
	ectx := newStandalone([]types.Node{node}, nil)
	ectx.AddVariable("batch_id", "b1", "", "")
	ectx.AddVariable("output_dir", dir, "", "")
	ectx.AddVariable("adapted_report", "# A", "", "")
	ectx.AddVariable("professional_report", "# P", "", "")
	ectx.AddVariable("aggregate_score_profile", "# S", "", "")

	e := &OutputSenderExecutor{}
	if err := e.Execute(context.Background(), ectx, node); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := ectx.GetResult("sender1")
	if !ok || !result.Success {
		t.Fatalf("expected success, got %+v (ok=%v)", result, ok)
	}

	wantFiles := map[string]string{
		"adapted.md":      "# A",
		"professional.md": "# P",
		"scores.md":       "# S",
	}
	for name, want := range wantFiles {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s content = %q, want %q", name, got, want)
		}
	}
}

func TestOutputSenderExecutor_DisabledWhenAutoSendFalse(t *testing.T) {
	node := types.Node{
		ID:   "sender1",
		Kind: types.KindOutputSender,
		Data: map[string]interface{}{"autoSend": false},
	}
	ectx := newStandalone([]types.Node{node}, nil)

	e := &OutputSenderExecutor{}
	if err := e.Execute(context.Background(), ectx, node); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := ectx.GetResult("sender1")
	if !ok || !result.Success {
		t.Fatalf("expected success (disabled is not a failure), got %+v (ok=%v)", result, ok)
	}
	out, _ := result.Output.(map[string]interface{})
	if out["status"] != "disabled" {
		t.Errorf("expected disabled status, got %+v", result.Output)
	}
}

func TestRegistry_ExecuteSkipsReentryWhileExecuting(t *testing.T) {
	registry := NewRegistry()
	calls := 0
	registry.Register(&fakeCountingExecutor{kind: types.KindNote, calls: &calls})

	node := types.Node{ID: "n1", Kind: types.KindNote, Data: map[string]interface{}{"isExecuting": true}}
	ectx := newStandalone([]types.Node{node}, nil)

	if err := registry.Execute(context.Background(), ectx, node); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("expected re-entrant execution to be a no-op, got %d calls", calls)
	}
}

func TestRegistry_ExecuteUnknownKindSucceedsTrivially(t *testing.T) {
	registry := NewRegistry()
	node := types.Node{ID: "n1", Kind: "unknown-kind"}
	ectx := newStandalone([]types.Node{node}, nil)

	if err := registry.Execute(context.Background(), ectx, node); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := ectx.GetResult("n1")
	if !ok || !result.Success {
		t.Fatalf("expected trivial success for an inert kind, got %+v (ok=%v)", result, ok)
	}
}

type fakeCountingExecutor struct {
	kind  types.NodeKind
	calls *int
}

func (f *fakeCountingExecutor) CanExecute(node types.Node) bool { return node.Kind == f.kind }
func (f *fakeCountingExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	*f.calls++
	return nil
}

func TestTriggerAndNoteExecutors(t *testing.T) {
	trigger := types.Node{ID: "t1", Kind: types.KindTrigger}
	note := types.Node{ID: "n1", Kind: types.KindNote}
	ectx := newStandalone([]types.Node{trigger, note}, nil)

	if err := (&TriggerExecutor{}).Execute(context.Background(), ectx, trigger); err != nil {
		t.Fatalf("TriggerExecutor.Execute() error = %v", err)
	}
	result, _ := ectx.GetResult("t1")
	if !result.Success {
		t.Fatal("expected trigger to succeed")
	}
	out, _ := result.Output.(map[string]interface{})
	if out["triggered"] != true {
		t.Errorf("expected triggered=true, got %+v", result.Output)
	}

	if err := (&NoteExecutor{}).Execute(context.Background(), ectx, note); err != nil {
		t.Fatalf("NoteExecutor.Execute() error = %v", err)
	}
	result, _ = ectx.GetResult("n1")
	if !result.Success || result.Output != nil {
		t.Errorf("expected note to succeed with nil output, got %+v", result)
	}
}

// TestResolveCustomField_DottedPathIntoJSONVariable exercises OutputSender's
// custom-field resolution (spec.md §6): a root variable name optionally
// followed by a dotted expr-lang path into its decoded JSON value.
func TestResolveCustomField_DottedPathIntoJSONVariable(t *testing.T) {
	vars := map[string]types.Variable{
		"report": {Name: "report", Value: `{"title":"Q3","scores":[10,20,30]}`},
		"plain":  {Name: "plain", Value: "hello"},
	}

	got, err := resolveCustomField("plain", vars)
	if err != nil {
		t.Fatalf("resolveCustomField(plain) error = %v", err)
	}
	if got != "hello" {
		t.Errorf("resolveCustomField(plain) = %v, want %q", got, "hello")
	}

	got, err = resolveCustomField("report.title", vars)
	if err != nil {
		t.Fatalf("resolveCustomField(report.title) error = %v", err)
	}
	if got != "Q3" {
		t.Errorf("resolveCustomField(report.title) = %v, want %q", got, "Q3")
	}

	got, err = resolveCustomField("report.scores.length", vars)
	if err != nil {
		t.Fatalf("resolveCustomField(report.scores.length) error = %v", err)
	}
	if got != 3 {
		t.Errorf("resolveCustomField(report.scores.length) = %v, want 3", got)
	}

	if _, err := resolveCustomField("missing.field", vars); err == nil {
		t.Error("expected an error for a reference to an unknown variable")
	}
}
