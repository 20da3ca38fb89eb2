// Package llm holds the provider-specific request/response shape handling
// spec.md §1 calls out as the one piece of the LLM pipeline this engine
// treats as an external collaborator: the engine only needs to know how
// to build each provider's request body and parse its response, not how
// to operate a production-grade client for it. Actual HTTP dispatch goes
// through pkg/httpclient; retry/backoff is pkg/retry's job, wrapped
// around Dispatch by pkg/executor's LLMChain.
package llm

import (
	"context"
	"strings"
)

// Role is a chat message's role, matching spec.md §6's basicLLMChain
// message shape.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn, after interpolation and consecutive-user
// merging (spec.md §4.3 step 2).
type Message struct {
	Role    Role
	Content string
}

// ProviderConfig carries a ModelProvider node's configuration: which
// parameters are set and, independently, which are enabled. A parameter
// honored only when its *Enabled flag is true (spec.md §4.3 step 3) — a
// provider config can carry a stale Temperature value the user has since
// toggled off without the engine sending it.
type ProviderConfig struct {
	Provider   string
	Model      string
	APIKey     string
	OAuthToken string
	FolderID   string
	BaseURL    string

	Temperature        float64
	TemperatureEnabled bool
	TopP               float64
	TopPEnabled        bool
	TopK               float64
	TopKEnabled        bool
	MaxTokens          int
	MaxTokensEnabled   bool
	Seed               int
	SeedEnabled        bool
	Stops              []string
	StopsEnabled       bool
	PresencePenalty        float64
	PresencePenaltyEnabled bool
	FrequencyPenalty        float64
	FrequencyPenaltyEnabled bool
	ReasoningEffort        string
	ReasoningEffortEnabled bool
}

// IsO1Family reports whether cfg targets an OpenAI "o1"-class reasoning
// model, which rejects temperature/top_p/presence/frequency regardless of
// their enabled flags (spec.md §4.3 step 3).
func (cfg ProviderConfig) IsO1Family() bool {
	m := strings.ToLower(cfg.Model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

// Response is a parsed provider reply (spec.md §4.3 step 4). Thinking is
// advisory — extracted via fragile heuristics the design notes (§9)
// explicitly flag as such.
type Response struct {
	Response         string
	Thinking         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Dispatcher sends messages to one provider and parses its reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg ProviderConfig, messages []Message) (Response, error)
}

// Registry resolves a ProviderConfig.Provider tag to its Dispatcher.
type Registry struct {
	dispatchers map[string]Dispatcher
}

// NewRegistry wires the four provider-style subroutines spec.md §4.3
// step 3 names, plus anthropic (present in the provider enum of §6's
// modelProvider shape though not named as a dispatch subroutine — treated
// here with its own small builder rather than silently folded into the
// OpenAI-compatible path, since Anthropic's Messages API shape genuinely
// differs: a top-level system field and a required max_tokens).
func NewRegistry(httpDispatch HTTPDispatchFunc) *Registry {
	return &Registry{
		dispatchers: map[string]Dispatcher{
			"openai":    &OpenAIStyle{HTTPDispatch: httpDispatch, DefaultBaseURL: "https://api.openai.com/v1"},
			"lmstudio":  &OpenAIStyle{HTTPDispatch: httpDispatch, DefaultBaseURL: "http://localhost:1234/v1"},
			"ollama":    &OllamaStyle{HTTPDispatch: httpDispatch},
			"yandex":    &YandexStyle{HTTPDispatch: httpDispatch},
			"anthropic": &AnthropicStyle{HTTPDispatch: httpDispatch},
		},
	}
}

// Get returns the Dispatcher for provider, or ok=false if unknown.
func (r *Registry) Get(provider string) (Dispatcher, bool) {
	d, ok := r.dispatchers[strings.ToLower(provider)]
	return d, ok
}

// HTTPDispatchFunc issues one HTTP request and returns its raw response
// body (or an error — classified by pkg/retry upstream). It is the one
// seam every provider style shares, letting tests substitute a stub
// instead of a real HTTP round trip.
type HTTPDispatchFunc func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error)

// extractThinking pulls a "thinking" aside out of raw model content using
// the heuristics spec.md §4.3 step 4 and §9 flag as advisory: explicit
// tags, a separator line followed by reasoning-like text, or a leading
// prefix. Returns the cleaned response text and the extracted thinking
// (empty if none found).
func extractThinking(content string) (response string, thinking string) {
	for _, tag := range []string{"reasoning", "thinking"} {
		open, close := "<"+tag+">", "</"+tag+">"
		if start := strings.Index(content, open); start >= 0 {
			if end := strings.Index(content[start:], close); end >= 0 {
				thinking = strings.TrimSpace(content[start+len(open) : start+end])
				rest := content[:start] + content[start+end+len(close):]
				return strings.TrimSpace(rest), thinking
			}
		}
	}

	for _, sep := range []string{"\n---\n", "\n===\n"} {
		if idx := strings.Index(content, sep); idx >= 0 {
			before := content[:idx]
			after := strings.TrimSpace(content[idx+len(sep):])
			lower := strings.ToLower(before)
			if strings.Contains(lower, "reason") || strings.Contains(lower, "think") {
				return after, strings.TrimSpace(before)
			}
		}
	}

	lower := strings.ToLower(content)
	for _, prefix := range []string{"thinking:", "reasoning:"} {
		if strings.HasPrefix(lower, prefix) {
			if idx := strings.Index(content, "\n\n"); idx >= 0 {
				return strings.TrimSpace(content[idx+2:]), strings.TrimSpace(content[len(prefix):idx])
			}
		}
	}

	return content, ""
}
