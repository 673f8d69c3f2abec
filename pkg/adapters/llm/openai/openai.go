// Package openai adapts OpenAI-compatible chat completion endpoints,
// including local llama.cpp and vLLM servers via base_url.
package openai

import (
	"context"
	"fmt"
	"os"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/wilhg/relay/pkg/adapters/llm"
)

const defaultModel = "gpt-5-nano"

type clientWrapper struct {
	client oa.Client
	model  string
}

func (c *clientWrapper) Name() string { return "openai" }

func (c *clientWrapper) Generate(ctx context.Context, messages []llm.Message, opts map[string]any) (llm.GenerateResult, error) {
	model := c.model
	if v, ok := llm.String(opts, llm.OptModel); ok {
		model = v
	}

	mm := make([]oa.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			mm = append(mm, oa.SystemMessage(m.Content))
		case "assistant":
			mm = append(mm, oa.AssistantMessage(m.Content))
		default:
			mm = append(mm, oa.UserMessage(m.Content))
		}
	}

	params := oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: mm,
	}
	if n, ok := llm.Int(opts, llm.OptMaxTokens); ok {
		params.MaxTokens = oa.Int(int64(n))
	}
	if t, ok := llm.Float(opts, llm.OptTemperature); ok {
		params.Temperature = oa.Float(t)
	}
	if s, ok := llm.Strings(opts, llm.OptStop); ok {
		params.Stop = oa.ChatCompletionNewParamsStopUnion{OfStringArray: s}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.GenerateResult{}, err
	}
	var out string
	if len(resp.Choices) > 0 {
		out = resp.Choices[0].Message.Content
	}
	usage := resp.Usage
	return llm.GenerateResult{
		Text:         out,
		PromptTokens: int(usage.PromptTokens),
		OutputTokens: int(usage.CompletionTokens),
		TotalTokens:  int(usage.TotalTokens),
		Model:        model,
	}, nil
}

// Factory builds the provider. cfg keys: api_key, model, base_url.
// A base_url without an API key targets a local server that ignores auth.
func Factory(ctx context.Context, cfg map[string]any) (llm.LLM, error) { // nolint: revive
	_ = ctx
	apiKey := os.Getenv("OPENAI_API_KEY")
	if v, ok := llm.String(cfg, "api_key"); ok {
		apiKey = v
	}
	baseURL, hasBase := llm.String(cfg, "base_url")
	if apiKey == "" {
		if !hasBase {
			return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY or cfg.api_key")
		}
		apiKey = "sk-no-key-required"
	}
	model := defaultModel
	if v, ok := llm.String(cfg, "model"); ok {
		model = v
	}

	ro := []option.RequestOption{option.WithAPIKey(apiKey)}
	if hasBase {
		ro = append(ro, option.WithBaseURL(baseURL))
	}
	if n, ok := llm.Int(cfg, "max_retries"); ok {
		ro = append(ro, option.WithMaxRetries(n))
	}
	return &clientWrapper{client: oa.NewClient(ro...), model: model}, nil
}

func init() {
	_ = llm.Register("openai", Factory)
}
