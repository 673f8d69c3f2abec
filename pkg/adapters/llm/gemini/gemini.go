// Package gemini adapts the Gemini API as a completion provider.
package gemini

import (
	"context"
	"fmt"
	"os"

	genai "google.golang.org/genai"

	"github.com/wilhg/relay/pkg/adapters/llm"
)

const defaultModel = "gemini-2.5-flash-lite"

type clientWrapper struct {
	client *genai.Client
	model  string
}

func (c *clientWrapper) Name() string { return "gemini" }

func (c *clientWrapper) Generate(ctx context.Context, messages []llm.Message, opts map[string]any) (llm.GenerateResult, error) {
	model := c.model
	if v, ok := llm.String(opts, llm.OptModel); ok {
		model = v
	}
	res, err := c.client.Models.GenerateContent(ctx, model, genai.Text(llm.Prompt(messages)), generateConfig(opts))
	if err != nil {
		return llm.GenerateResult{}, err
	}
	out := llm.GenerateResult{Text: res.Text(), Model: model}
	if u := res.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

func generateConfig(opts map[string]any) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	set := false
	if n, ok := llm.Int(opts, llm.OptMaxTokens); ok {
		cfg.MaxOutputTokens = int32(n)
		set = true
	}
	if t, ok := llm.Float(opts, llm.OptTemperature); ok {
		cfg.Temperature = genai.Ptr(float32(t))
		set = true
	}
	if s, ok := llm.Strings(opts, llm.OptStop); ok {
		cfg.StopSequences = s
		set = true
	}
	if !set {
		return nil
	}
	return cfg
}

// Factory creates a Gemini LLM client using GOOGLE_API_KEY by default.
func Factory(ctx context.Context, cfg map[string]any) (llm.LLM, error) { // nolint: revive
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if v, ok := llm.String(cfg, "api_key"); ok {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY or cfg.api_key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model := defaultModel
	if v, ok := llm.String(cfg, "model"); ok {
		model = v
	}
	return &clientWrapper{client: client, model: model}, nil
}

func init() {
	_ = llm.Register("gemini", Factory)
}
