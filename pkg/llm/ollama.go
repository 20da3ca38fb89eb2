package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// OllamaStyle builds an Ollama /api/chat request. Ollama has no
// reasoning_effort concept and uses an "options" sub-object for sampling
// parameters instead of top-level fields (spec.md §4.3 step 3).
type OllamaStyle struct {
	HTTPDispatch HTTPDispatchFunc
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *float64 `json:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (s *OllamaStyle) Dispatch(ctx context.Context, cfg ProviderConfig, messages []Message) (Response, error) {
	req := ollamaRequest{Model: cfg.Model, Stream: false}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	opts := ollamaOptions{}
	hasOpts := false
	if cfg.TemperatureEnabled {
		opts.Temperature = &cfg.Temperature
		hasOpts = true
	}
	if cfg.TopPEnabled {
		opts.TopP = &cfg.TopP
		hasOpts = true
	}
	if cfg.TopKEnabled {
		opts.TopK = &cfg.TopK
		hasOpts = true
	}
	if cfg.SeedEnabled {
		opts.Seed = &cfg.Seed
		hasOpts = true
	}
	if cfg.StopsEnabled {
		opts.Stop = cfg.Stops
		hasOpts = true
	}
	if cfg.MaxTokensEnabled {
		opts.NumPredict = &cfg.MaxTokens
		hasOpts = true
	}
	if hasOpts {
		req.Options = &opts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm: encode ollama request: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	base = strings.TrimSuffix(base, "/")

	raw, err := s.HTTPDispatch(ctx, "POST", base+"/api/chat", map[string]string{"content-type": "application/json"}, body)
	if err != nil {
		return Response{}, err
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("llm: decode ollama response: %w", err)
	}
	if parsed.Error != "" {
		return Response{}, fmt.Errorf("%s", parsed.Error)
	}

	response, thinking := extractThinking(parsed.Message.Content)
	return Response{
		Response:         response,
		Thinking:         thinking,
		PromptTokens:     parsed.PromptEvalCount,
		CompletionTokens: parsed.EvalCount,
		TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
	}, nil
}
