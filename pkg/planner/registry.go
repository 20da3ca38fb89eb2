package planner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/weavelane/llmflow/pkg/config"
	"github.com/weavelane/llmflow/pkg/execctx"
	"github.com/weavelane/llmflow/pkg/executor"
	"github.com/weavelane/llmflow/pkg/httpclient"
	"github.com/weavelane/llmflow/pkg/llm"
	"github.com/weavelane/llmflow/pkg/retry"
)

const (
	llmDispatchClientName  = "llm-dispatch"
	outputSenderClientName = "output-sender"
)

// buildClients constructs the two named HTTP clients the engine needs
// (spec.md §3 domain stack): one shared by every LLM provider style
// (pkg/llm differentiates providers by request shape, not by transport),
// one for OutputSender's job-status PATCH. Both go through the same
// httpclient.Builder so they share the engine's pooling, timeout, and
// SSRF settings.
func buildClients(cfg *config.Config) (*httpclient.Registry, error) {
	builder := httpclient.NewBuilder(cfg)

	llmClient, err := builder.Build(&httpclient.ClientConfig{
		Name:            llmDispatchClientName,
		Description:     "shared transport for LLM provider dispatch",
		Timeout:         cfg.HTTPTimeout,
		MaxRedirects:    cfg.MaxHTTPRedirects,
		MaxResponseSize: cfg.MaxResponseSize,
		FollowRedirects: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build llm-dispatch client: %w", err)
	}

	outputClient, err := builder.Build(&httpclient.ClientConfig{
		Name:            outputSenderClientName,
		Description:     "job-status reporting client for outputSender nodes",
		Timeout:         cfg.HTTPTimeout,
		MaxRedirects:    cfg.MaxHTTPRedirects,
		MaxResponseSize: cfg.MaxResponseSize,
		FollowRedirects: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build output-sender client: %w", err)
	}

	clients := httpclient.NewRegistry()
	if err := clients.Register(llmDispatchClientName, llmClient); err != nil {
		return nil, err
	}
	if err := clients.Register(outputSenderClientName, outputClient); err != nil {
		return nil, err
	}
	return clients, nil
}

// llmHTTPDispatch adapts a *httpclient.Client into the llm.HTTPDispatchFunc
// seam every provider style shares.
func llmHTTPDispatch(client *httpclient.Client) llm.HTTPDispatchFunc {
	return func(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, client.GetConfig().MaxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return respBody, fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	}
}

// buildExecutorRegistry wires the five per-kind TaskExecutors spec.md §4.2
// names (trigger, note, modelProvider, basicLLMChain, outputSender) into a
// single dispatch Registry. Variables is an execctx.Context rather than a
// bare *variables.Store: execctx.Context already declares GetVariables /
// AddVariable / UpdateVariable verbatim, satisfying executor.VariableWriter
// by structural typing, whereas *variables.Store exposes a different method
// set (Add/AddWorkflow) and would not.
func buildExecutorRegistry(cfg *config.Config, ectx execctx.Context, clients *httpclient.Registry) (*executor.Registry, error) {
	llmClient, err := clients.Get(llmDispatchClientName)
	if err != nil {
		return nil, err
	}
	outputClient, err := clients.Get(outputSenderClientName)
	if err != nil {
		return nil, err
	}

	providers := llm.NewRegistry(llmHTTPDispatch(llmClient))

	llmRetry := retry.New(retry.Envelope{
		BaseDelay:    cfg.LLMRetryBaseDelay,
		MaxDelay:     cfg.LLMRetryMaxDelay,
		WallClockCap: cfg.LLMRetryWallClockCap,
		MaxAttempts:  cfg.LLMRetryMaxAttempts,
		JitterPct:    cfg.LLMRetryJitterPct,
	})
	httpRetry := retry.New(retry.Envelope{
		BaseDelay:   cfg.HTTPRetryBaseDelay,
		MaxDelay:    cfg.HTTPRetryMaxDelay,
		MaxAttempts: cfg.HTTPRetryMaxAttempts,
		JitterPct:   cfg.HTTPRetryJitterPct,
	})

	registry := executor.NewRegistry()
	registry.Register(&executor.TriggerExecutor{})
	registry.Register(&executor.NoteExecutor{})
	registry.Register(&executor.ModelProviderExecutor{})
	registry.Register(&executor.LLMChainExecutor{
		Providers: providers,
		Variables: ectx,
		Retry:     llmRetry,
	})
	registry.Register(&executor.OutputSenderExecutor{
		Client: outputClient,
		Retry:  httpRetry,
	})
	return registry, nil
}
