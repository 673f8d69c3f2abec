// Package ollama runs raw completions against a local Ollama daemon.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wilhg/relay/pkg/adapters/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "phi"
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Raw     bool           `json:"raw"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Client talks to /api/generate with raw prompts so the transcript reaches
// the model without a chat template.
type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts map[string]any) (llm.GenerateResult, error) {
	model := c.Model
	if v, ok := llm.String(opts, llm.OptModel); ok {
		model = v
	}
	req := generateRequest{
		Model:   model,
		Prompt:  llm.Prompt(messages),
		Raw:     true,
		Options: options(opts),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return llm.GenerateResult{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return llm.GenerateResult{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(hreq)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return llm.GenerateResult{}, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	return llm.GenerateResult{
		Text:         out.Response,
		PromptTokens: out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		TotalTokens:  out.PromptEvalCount + out.EvalCount,
		Model:        model,
	}, nil
}

// options maps generation options onto Ollama's names.
func options(opts map[string]any) map[string]any {
	o := map[string]any{}
	if n, ok := llm.Int(opts, llm.OptMaxTokens); ok {
		o["num_predict"] = n
	}
	if t, ok := llm.Float(opts, llm.OptTemperature); ok {
		o["temperature"] = t
	}
	if s, ok := llm.Strings(opts, llm.OptStop); ok {
		o["stop"] = s
	}
	if len(o) == 0 {
		return nil
	}
	return o
}

// Factory builds a client. cfg keys: base_url, model, timeout (seconds).
// OLLAMA_HOST is used when base_url is unset.
func Factory(_ context.Context, cfg map[string]any) (llm.LLM, error) { // nolint: revive
	base := os.Getenv("OLLAMA_HOST")
	if v, ok := llm.String(cfg, "base_url"); ok {
		base = v
	}
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	model := defaultModel
	if v, ok := llm.String(cfg, "model"); ok {
		model = v
	}
	timeout := 120 * time.Second
	if n, ok := llm.Int(cfg, "timeout"); ok && n > 0 {
		timeout = time.Duration(n) * time.Second
	}
	return &Client{
		BaseURL: base,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func init() {
	_ = llm.Register("ollama", Factory)
}
