package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTool_FormatsResults(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Cats 101","url":"https://a.example","publishedDate":"2024-01-02","text":"` + strings.Repeat("c", 600) + `"},
			{"title":"More cats","url":"https://b.example","text":""}
		]}`))
	}))
	defer srv.Close()

	st := SearchTool{APIKey: "k", BaseURL: srv.URL}
	out, err := st.Invoke(context.Background(), map[string]any{"query": "cats", "max_results": float64(2)})
	require.NoError(t, err)

	assert.Equal(t, "cats", got.Query)
	assert.Equal(t, 2, got.NumResults)
	assert.True(t, got.Contents.Text)

	assert.True(t, strings.HasPrefix(out, "Search results for \"cats\":\n\n1. Cats 101\n   "+strings.Repeat("c", 500)+"...\n"))
	assert.Contains(t, out, "   Source: https://a.example\n   Published: 2024-01-02\n")
	assert.Contains(t, out, "2. More cats\n   \n   Source: https://b.example\n   Published: N/A\n")
}

func TestSearchTool_FailureIsReportedAsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	out, err := SearchTool{APIKey: "k", BaseURL: srv.URL}.Invoke(context.Background(), map[string]any{"query": "cats"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Search failed: "), out)
	assert.Contains(t, out, "429")
}

func TestSearchTool_MissingKey(t *testing.T) {
	out, err := SearchTool{}.Invoke(context.Background(), map[string]any{"query": "cats"})
	require.NoError(t, err)
	assert.Contains(t, out, "EXA_API_KEY")
}
