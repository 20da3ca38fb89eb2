package llm

import (
	"context"
	"encoding/json"
	"testing"
)

func TestIsO1Family(t *testing.T) {
	cases := []struct {
		model string
		want  bool
	}{
		{"o1-preview", true},
		{"o1-mini", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"gpt-4", false},
		{"gpt-4o", false},
	}
	for _, tc := range cases {
		cfg := ProviderConfig{Model: tc.model}
		if got := cfg.IsO1Family(); got != tc.want {
			t.Errorf("IsO1Family(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestExtractThinking_Tags(t *testing.T) {
	response, thinking := extractThinking("before <thinking>scratch work</thinking>after")
	if thinking != "scratch work" {
		t.Errorf("thinking = %q, want %q", thinking, "scratch work")
	}
	if response != "before after" {
		t.Errorf("response = %q, want %q", response, "before after")
	}
}

func TestExtractThinking_ReasoningTag(t *testing.T) {
	_, thinking := extractThinking("<reasoning>step by step</reasoning>the answer")
	if thinking != "step by step" {
		t.Errorf("thinking = %q, want %q", thinking, "step by step")
	}
}

func TestExtractThinking_Separator(t *testing.T) {
	response, thinking := extractThinking("reasoning: the model thought about it\n---\nthe final answer")
	if thinking == "" {
		t.Fatal("expected a separator-delimited reasoning block to be extracted")
	}
	if response != "the final answer" {
		t.Errorf("response = %q, want %q", response, "the final answer")
	}
}

func TestExtractThinking_LeadingPrefix(t *testing.T) {
	response, thinking := extractThinking("thinking: pondering the question\n\nhere is the answer")
	if thinking != "pondering the question" {
		t.Errorf("thinking = %q, want %q", thinking, "pondering the question")
	}
	if response != "here is the answer" {
		t.Errorf("response = %q, want %q", response, "here is the answer")
	}
}

func TestExtractThinking_NoHeuristicMatchReturnsContentUnchanged(t *testing.T) {
	response, thinking := extractThinking("just a plain answer")
	if thinking != "" {
		t.Errorf("expected no thinking extracted, got %q", thinking)
	}
	if response != "just a plain answer" {
		t.Errorf("response = %q, want unchanged content", response)
	}
}

func TestOpenAIStyle_BuildsRequestAndParsesResponse(t *testing.T) {
	var capturedBody []byte
	dispatch := func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		capturedBody = body
		return []byte(`{"choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`), nil
	}
	s := &OpenAIStyle{HTTPDispatch: dispatch, DefaultBaseURL: "https://api.openai.com/v1"}

	cfg := ProviderConfig{Model: "gpt-4", Temperature: 0.7, TemperatureEnabled: true}
	resp, err := s.Dispatch(context.Background(), cfg, []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if resp.Response != "hello there" || resp.TotalTokens != 5 {
		t.Errorf("resp = %+v", resp)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(capturedBody, &decoded); err != nil {
		t.Fatalf("failed to decode captured request body: %v", err)
	}
	if decoded["temperature"] != 0.7 {
		t.Errorf("expected temperature to be sent when enabled, got %v", decoded["temperature"])
	}
}

// TestOpenAIStyle_O1FamilyOmitsSamplingParams exercises spec.md §4.3
// step 3: o1-class models never receive temperature/top_p/presence/
// frequency regardless of their enabled flags.
func TestOpenAIStyle_O1FamilyOmitsSamplingParams(t *testing.T) {
	var capturedBody []byte
	dispatch := func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		capturedBody = body
		return []byte(`{"choices":[{"message":{"content":"ok"}}]}`), nil
	}
	s := &OpenAIStyle{HTTPDispatch: dispatch, DefaultBaseURL: "https://api.openai.com/v1"}

	cfg := ProviderConfig{
		Model:                   "o1-mini",
		Temperature:             0.9,
		TemperatureEnabled:      true,
		TopP:                    0.5,
		TopPEnabled:             true,
		PresencePenalty:         0.3,
		PresencePenaltyEnabled:  true,
		FrequencyPenalty:        0.3,
		FrequencyPenaltyEnabled: true,
		ReasoningEffort:         "high",
		ReasoningEffortEnabled:  true,
	}
	if _, err := s.Dispatch(context.Background(), cfg, []Message{{Role: RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(capturedBody, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"temperature", "top_p", "presence_penalty", "frequency_penalty"} {
		if _, present := decoded[field]; present {
			t.Errorf("expected %s to be omitted for an o1-family model, got it present: %v", field, decoded)
		}
	}
	if decoded["reasoning_effort"] != "high" {
		t.Errorf("expected reasoning_effort to still be sent for an o1-family model, got %v", decoded["reasoning_effort"])
	}
}

func TestYandexStyle_UsesReasoningContentField(t *testing.T) {
	dispatch := func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		return []byte(`{"result":{"alternatives":[{"message":{"text":"the answer","reasoning_content":"chain of thought"}}],"usage":{"inputTextTokens":"3","completionTokens":"2","totalTokens":"5"}}}`), nil
	}
	s := &YandexStyle{HTTPDispatch: dispatch}
	cfg := ProviderConfig{Model: "yandexgpt", FolderID: "folder1", OAuthToken: "tok"}

	resp, err := s.Dispatch(context.Background(), cfg, []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if resp.Response != "the answer" {
		t.Errorf("response = %q, want %q", resp.Response, "the answer")
	}
	if resp.Thinking != "chain of thought" {
		t.Errorf("thinking = %q, want %q", resp.Thinking, "chain of thought")
	}
	if resp.TotalTokens != 5 {
		t.Errorf("total tokens = %d, want 5", resp.TotalTokens)
	}
}

func TestRegistry_GetIsCaseInsensitive(t *testing.T) {
	r := NewRegistry(func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		return nil, nil
	})
	if _, ok := r.Get("OpenAI"); !ok {
		t.Error("expected Get to be case-insensitive")
	}
	if _, ok := r.Get("unknown-provider"); ok {
		t.Error("expected Get to report false for an unknown provider")
	}
}
