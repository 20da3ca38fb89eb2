package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/llm"
	"github.com/weavelane/llmflow/pkg/retry"
	"github.com/weavelane/llmflow/pkg/types"
)

// genericLabels are node labels treated as unset for auto-naming
// purposes (spec.md §4.3 step 5): UI default placeholders, not a name
// the user actually chose.
var genericLabels = map[string]bool{
	"basic llm chain": true,
	"llm chain":       true,
	"localhost":       true,
}

// LLMChainExecutor is the engine's core algorithm: locate the matching
// ModelProvider, interpolate and merge the message list, dispatch through
// pkg/llm wrapped in a RetryPolicy, and auto-publish the response as a
// variable.
type LLMChainExecutor struct {
	Providers *llm.Registry
	Variables VariableWriter
	Retry     *retry.Policy
}

// VariableWriter is the slice of execctx.Context's variable API
// LLMChainExecutor needs, kept narrow so tests can stub it directly
// instead of standing up a whole execctx.Context.
type VariableWriter interface {
	GetVariables() map[string]types.Variable
	AddVariable(name, value, description, folder string)
	UpdateVariable(name, value string)
}

func (e *LLMChainExecutor) CanExecute(node types.Node) bool {
	return node.Kind == types.KindLLMChain
}

func (e *LLMChainExecutor) Execute(ctx context.Context, ectx execctx.Context, node types.Node) error {
	start := time.Now()

	modelGroup, ok := intFromData(node.Data, "modelGroup")
	if !ok {
		writeResult(ectx, node, withDuration(configError(node, "No model group configured"), start))
		return nil
	}

	provider, found := FindProvider(ectx, modelGroup)
	if !found {
		writeResult(ectx, node, withDuration(configError(node, "No matching model provider for group %d", modelGroup), start))
		return nil
	}

	cfg, err := buildProviderConfig(provider)
	if err != nil {
		writeResult(ectx, node, withDuration(configError(node, "%s", err.Error()), start))
		return nil
	}

	messages, err := e.buildMessages(node, ectx)
	if err != nil {
		writeResult(ectx, node, withDuration(configError(node, "%s", err.Error()), start))
		return nil
	}

	dispatcher, ok := e.Providers.Get(cfg.Provider)
	if !ok {
		writeResult(ectx, node, withDuration(configError(node, "Unknown provider %q", cfg.Provider), start))
		return nil
	}

	policy := e.Retry
	if policy == nil {
		policy = retry.New(retry.LLMEnvelope())
	}

	label := node.ID
	if node.Label != "" {
		label = node.Label
	}

	out, err := policy.Do(ctx, label, func(ctx context.Context) (interface{}, error) {
		return dispatcher.Dispatch(ctx, cfg, messages)
	})
	if err != nil {
		writeResult(ectx, node, withDuration(types.ExecutionResult{Success: false, Error: err.Error()}, start))
		return nil
	}

	resp := out.(llm.Response)
	stats := &types.Stats{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
		Timestamp:        time.Now(),
	}

	e.publishVariable(node, resp.Response)

	writeResult(ectx, node, types.ExecutionResult{
		Success: true,
		Output: map[string]interface{}{
			"response": resp.Response,
			"thinking": resp.Thinking,
		},
		DurationMS: time.Since(start).Milliseconds(),
		Stats:      stats,
	})
	return nil
}

// buildMessages interpolates every message's content and merges
// consecutive user-role turns (spec.md §4.3 step 2).
func (e *LLMChainExecutor) buildMessages(node types.Node, ectx execctx.Context) ([]llm.Message, error) {
	raw, ok := node.Data["messages"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("No messages configured")
	}

	var interpolated []llm.Message
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		interpolated = append(interpolated, llm.Message{
			Role:    llm.Role(role),
			Content: ectx.Interpolate(content),
		})
	}

	return mergeConsecutiveUser(interpolated), nil
}

// mergeConsecutiveUser collapses adjacent "user" role messages into one,
// joining their content with exactly ten newlines.
func mergeConsecutiveUser(messages []llm.Message) []llm.Message {
	var merged []llm.Message
	for _, m := range messages {
		if len(merged) > 0 && merged[len(merged)-1].Role == llm.RoleUser && m.Role == llm.RoleUser {
			last := &merged[len(merged)-1]
			last.Content = last.Content + strings.Repeat("\n", 10) + m.Content
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// publishVariable implements spec.md §4.3 step 5's auto-naming rule.
func (e *LLMChainExecutor) publishVariable(node types.Node, response string) {
	if e.Variables == nil {
		return
	}

	name := autoVariableName(node)
	if _, exists := e.Variables.GetVariables()[name]; exists {
		e.Variables.UpdateVariable(name, response)
		return
	}
	e.Variables.AddVariable(name, response, "", "")
}

func autoVariableName(node types.Node) string {
	label := strings.TrimSpace(node.Label)
	if label != "" && !genericLabels[strings.ToLower(label)] {
		return label
	}

	base := label
	if base == "" {
		base = "llm_output"
	}
	suffix := node.ID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("%s_%s", slugVariableBase(base), suffix)
}

func slugVariableBase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// buildProviderConfig reads a ModelProvider node's data blob into a
// llm.ProviderConfig.
func buildProviderConfig(node types.Node) (llm.ProviderConfig, error) {
	provider, _ := node.Data["provider"].(string)
	model, _ := node.Data["model"].(string)
	if provider == "" || model == "" {
		return llm.ProviderConfig{}, fmt.Errorf("model provider is misconfigured")
	}

	cfg := llm.ProviderConfig{
		Provider:   provider,
		Model:      model,
		APIKey:     stringFromData(node.Data, "apiKey"),
		OAuthToken: stringFromData(node.Data, "oauthToken"),
		FolderID:   stringFromData(node.Data, "folderId"),
		BaseURL:    stringFromData(node.Data, "baseURL"),
	}

	if v, ok := floatFromData(node.Data, "temperature"); ok {
		cfg.Temperature = v
		cfg.TemperatureEnabled = boolFromData(node.Data, "temperatureEnabled")
	}
	if v, ok := floatFromData(node.Data, "topP"); ok {
		cfg.TopP = v
		cfg.TopPEnabled = boolFromData(node.Data, "topPEnabled")
	}
	if v, ok := floatFromData(node.Data, "topK"); ok {
		cfg.TopK = v
		cfg.TopKEnabled = boolFromData(node.Data, "topKEnabled")
	}
	if v, ok := intFromData(node.Data, "maxTokens"); ok {
		cfg.MaxTokens = v
		cfg.MaxTokensEnabled = boolFromData(node.Data, "maxTokensEnabled")
	}
	if v, ok := intFromData(node.Data, "seed"); ok {
		cfg.Seed = v
		cfg.SeedEnabled = boolFromData(node.Data, "seedEnabled")
	}
	if v, ok := node.Data["stops"].([]interface{}); ok {
		for _, s := range v {
			if str, ok := s.(string); ok {
				cfg.Stops = append(cfg.Stops, str)
			}
		}
		cfg.StopsEnabled = boolFromData(node.Data, "stopsEnabled")
	}
	if v, ok := floatFromData(node.Data, "presencePenalty"); ok {
		cfg.PresencePenalty = v
		cfg.PresencePenaltyEnabled = boolFromData(node.Data, "presencePenaltyEnabled")
	}
	if v, ok := floatFromData(node.Data, "frequencyPenalty"); ok {
		cfg.FrequencyPenalty = v
		cfg.FrequencyPenaltyEnabled = boolFromData(node.Data, "frequencyPenaltyEnabled")
	}
	if v, ok := node.Data["reasoningEffort"].(string); ok {
		cfg.ReasoningEffort = v
		cfg.ReasoningEffortEnabled = boolFromData(node.Data, "reasoningEffortEnabled")
	}

	return cfg, nil
}

func stringFromData(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func boolFromData(data map[string]interface{}, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func floatFromData(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func intFromData(data map[string]interface{}, key string) (int, bool) {
	switch v := data[key].(type) {
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
