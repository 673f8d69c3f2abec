package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wilhg/relay/pkg/tool"
)

const (
	defaultSearchURL     = "https://api.exa.ai"
	defaultSearchResults = 5
	snippetLimit         = 500
)

// SearchTool queries the Exa search API and summarizes the hits as text.
// Provider failures are reported in the returned text, not as errors, so the
// model can read them.
type SearchTool struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func (SearchTool) Describe() tool.Descriptor {
	in := []byte(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query/topic to research"},
    "max_results": {"type": "integer", "description": "Maximum number of search results to return (default: 5)", "default": 5, "minimum": 1, "maximum": 25}
  },
  "required": ["query"]
}`)
	return tool.Descriptor{
		Name:        "search_web_presentation",
		Description: "Search web for information about a topic",
		InputSchema: in,
		Permissions: []tool.Permission{{Name: "network:outbound"}},
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
	Contents   struct {
		Text bool `json:"text"`
	} `json:"contents"`
}

type searchResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		PublishedDate string `json:"publishedDate"`
		Text          string `json:"text"`
	} `json:"results"`
}

func (t SearchTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	n := defaultSearchResults
	switch v := args["max_results"].(type) {
	case int:
		n = v
	case float64:
		n = int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = int(i)
		}
	}
	if n <= 0 {
		n = defaultSearchResults
	}
	res, err := t.search(ctx, query, n)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err), nil
	}
	summary := make([]string, 0, len(res.Results))
	for i, r := range res.Results {
		content := ""
		if r.Text != "" {
			content = truncateRunes(r.Text, snippetLimit) + "..."
		}
		published := r.PublishedDate
		if published == "" {
			published = "N/A"
		}
		summary = append(summary, fmt.Sprintf("%d. %s\n   %s\n   Source: %s\n   Published: %s\n", i+1, r.Title, content, r.URL, published))
	}
	return fmt.Sprintf("Search results for %q:\n\n%s", query, strings.Join(summary, "\n")), nil
}

func (t SearchTool) search(ctx context.Context, query string, n int) (searchResponse, error) {
	if t.APIKey == "" {
		return searchResponse{}, fmt.Errorf("missing API key; set EXA_API_KEY")
	}
	base := t.BaseURL
	if base == "" {
		base = defaultSearchURL
	}
	client := t.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	body := searchRequest{Query: query, NumResults: n, Type: "auto"}
	body.Contents.Text = true
	payload, err := json.Marshal(body)
	if err != nil {
		return searchResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/search", bytes.NewReader(payload))
	if err != nil {
		return searchResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.APIKey)
	resp, err := client.Do(req)
	if err != nil {
		return searchResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return searchResponse{}, fmt.Errorf("search API status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return searchResponse{}, err
	}
	return out, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
