package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpenAIStyle builds an OpenAI chat/completions request. LMStudio speaks
// the same wire shape on a local base URL, so it reuses this builder with
// a different default endpoint (spec.md §4.3 step 3).
type OpenAIStyle struct {
	HTTPDispatch   HTTPDispatchFunc
	DefaultBaseURL string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	ReasoningEffort  *string         `json:"reasoning_effort,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Dispatch implements Dispatcher.
func (s *OpenAIStyle) Dispatch(ctx context.Context, cfg ProviderConfig, messages []Message) (Response, error) {
	req := openAIRequest{Model: cfg.Model}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	if !cfg.IsO1Family() {
		if cfg.TemperatureEnabled {
			req.Temperature = &cfg.Temperature
		}
		if cfg.TopPEnabled {
			req.TopP = &cfg.TopP
		}
		if cfg.PresencePenaltyEnabled {
			req.PresencePenalty = &cfg.PresencePenalty
		}
		if cfg.FrequencyPenaltyEnabled {
			req.FrequencyPenalty = &cfg.FrequencyPenalty
		}
	}
	if cfg.MaxTokensEnabled {
		req.MaxTokens = &cfg.MaxTokens
	}
	if cfg.SeedEnabled {
		req.Seed = &cfg.Seed
	}
	if cfg.StopsEnabled {
		req.Stop = cfg.Stops
	}
	if cfg.ReasoningEffortEnabled && cfg.IsO1Family() {
		req.ReasoningEffort = &cfg.ReasoningEffort
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm: encode openai-style request: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = s.DefaultBaseURL
	}
	headers := map[string]string{"content-type": "application/json"}
	if cfg.APIKey != "" {
		headers["authorization"] = "Bearer " + cfg.APIKey
	}

	raw, err := s.HTTPDispatch(ctx, "POST", base+"/chat/completions", headers, body)
	if err != nil {
		return Response{}, err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("llm: decode openai-style response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("%s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: openai-style response had no choices")
	}

	response, thinking := extractThinking(parsed.Choices[0].Message.Content)
	return Response{
		Response:         response,
		Thinking:         thinking,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}
