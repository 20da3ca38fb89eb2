package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// YandexStyle builds a YandexGPT completion request. Yandex carries its
// own "reasoning_content" field for chain-of-thought rather than relying
// on tag/prefix heuristics (spec.md §4.3 step 4), and authenticates with
// an IAM token plus a folder id rather than a bare API key.
type YandexStyle struct {
	HTTPDispatch HTTPDispatchFunc
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexCompletionOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *string  `json:"maxTokens,omitempty"`
}

type yandexRequest struct {
	ModelURI          string                  `json:"modelUri"`
	CompletionOptions yandexCompletionOptions `json:"completionOptions"`
	Messages          []yandexMessage         `json:"messages"`
}

type yandexResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Text             string `json:"text"`
				ReasoningContent string `json:"reasoning_content"`
			} `json:"message"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  string `json:"inputTextTokens"`
			CompletionTokens string `json:"completionTokens"`
			TotalTokens      string `json:"totalTokens"`
		} `json:"usage"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *YandexStyle) Dispatch(ctx context.Context, cfg ProviderConfig, messages []Message) (Response, error) {
	req := yandexRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", cfg.FolderID, cfg.Model),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, yandexMessage{Role: string(m.Role), Text: m.Content})
	}
	if cfg.TemperatureEnabled {
		req.CompletionOptions.Temperature = &cfg.Temperature
	}
	if cfg.MaxTokensEnabled {
		tokens := fmt.Sprintf("%d", cfg.MaxTokens)
		req.CompletionOptions.MaxTokens = &tokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm: encode yandex request: %w", err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = "https://llm.api.cloud.yandex.net/foundationModels/v1"
	}
	headers := map[string]string{
		"content-type":  "application/json",
		"authorization": "Bearer " + cfg.OAuthToken,
		"x-folder-id":   cfg.FolderID,
	}

	raw, err := s.HTTPDispatch(ctx, "POST", base+"/completion", headers, body)
	if err != nil {
		// Yandex IAM token refresh glitches surface as distinctive auth
		// errors; RetryPolicy's transient pattern list matches "iam token"
		// so this is retried rather than treated as a hard auth failure.
		return Response{}, err
	}

	var parsed yandexResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("llm: decode yandex response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("%s", parsed.Error.Message)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return Response{}, fmt.Errorf("llm: yandex response had no alternatives")
	}

	alt := parsed.Result.Alternatives[0].Message
	response := alt.Text
	thinking := alt.ReasoningContent
	if thinking == "" {
		response, thinking = extractThinking(response)
	}

	return Response{
		Response:         response,
		Thinking:         thinking,
		PromptTokens:     atoiSafe(parsed.Result.Usage.InputTextTokens),
		CompletionTokens: atoiSafe(parsed.Result.Usage.CompletionTokens),
		TotalTokens:      atoiSafe(parsed.Result.Usage.TotalTokens),
	}, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
