package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// AnthropicStyle builds an Anthropic Messages API request. Unlike the
// other providers, Anthropic takes the system prompt as a top-level
// field rather than a message with role "system", and requires
// max_tokens on every request.
type AnthropicStyle struct {
	HTTPDispatch HTTPDispatchFunc
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string              `json:"model"`
	System      string              `json:"system,omitempty"`
	Messages    []anthropicMessage  `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	TopK        *int                `json:"top_k,omitempty"`
	StopSeqs    []string            `json:"stop_sequences,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *AnthropicStyle) Dispatch(ctx context.Context, cfg ProviderConfig, messages []Message) (Response, error) {
	req := anthropicRequest{Model: cfg.Model, MaxTokens: 4096}
	if cfg.MaxTokensEnabled && cfg.MaxTokens > 0 {
		req.MaxTokens = cfg.MaxTokens
	}

	for _, m := range messages {
		if m.Role == RoleSystem {
			if req.System != "" {
				req.System += "\n\n" + m.Content
			} else {
				req.System = m.Content
			}
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	if cfg.TemperatureEnabled {
		req.Temperature = &cfg.Temperature
	}
	if cfg.TopPEnabled {
		req.TopP = &cfg.TopP
	}
	if cfg.TopKEnabled {
		topK := int(cfg.TopK)
		req.TopK = &topK
	}
	if cfg.StopsEnabled {
		req.StopSeqs = cfg.Stops
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm: encode anthropic request: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = "https://api.anthropic.com/v1"
	}
	headers := map[string]string{
		"content-type":      "application/json",
		"x-api-key":         cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}

	raw, err := s.HTTPDispatch(ctx, "POST", base+"/messages", headers, body)
	if err != nil {
		return Response{}, err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("llm: decode anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("%s", parsed.Error.Message)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	response, thinking := extractThinking(text)
	return Response{
		Response:         response,
		Thinking:         thinking,
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
		TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}, nil
}
