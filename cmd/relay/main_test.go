package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/relay/internal/config"
	"github.com/wilhg/relay/internal/logging"
	"github.com/wilhg/relay/pkg/agent"
	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/tool/builtin"
)

type fakeRunner struct {
	active, peak atomic.Int32
	last         string
}

func (f *fakeRunner) Run(_ context.Context, msg string) agent.Result {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	if n > f.peak.Load() {
		f.peak.Store(n)
	}
	time.Sleep(5 * time.Millisecond)
	f.last = msg
	return agent.Result{Text: "answer to " + msg, Steps: 2, RunID: "run-1"}
}

func TestRouter_Ask(t *testing.T) {
	fr := &fakeRunner{}
	srv := httptest.NewServer(newRouter(fr, logging.NewNop(), nil))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/ask", "application/json", strings.NewReader(`{"message":"make slides"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out askResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, askResponse{Answer: "answer to make slides", Steps: 2, RunID: "run-1"}, out)
	assert.Equal(t, "make slides", fr.last)
}

func TestRouter_AskValidation(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeRunner{}, logging.NewNop(), nil))
	defer srv.Close()

	for body, code := range map[string]string{`{"message":"  "}`: "missing_message", `not json`: "invalid_json"} {
		res, err := http.Post(srv.URL+"/api/ask", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		var env struct {
			Error struct {
				Category string `json:"category"`
				Code     string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
		_ = res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "validation", env.Error.Category)
		assert.Equal(t, code, env.Error.Code)
	}
}

func TestRouter_RunsAreSerialized(t *testing.T) {
	fr := &fakeRunner{}
	h := newRouter(fr, logging.NewNop(), nil)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"message":"q"}`))
			h.ServeHTTP(httptest.NewRecorder(), req)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.EqualValues(t, 1, fr.peak.Load())
}

func TestRouter_RateLimit(t *testing.T) {
	assert.Nil(t, newLimiter(0, 5))

	h := newRouter(&fakeRunner{}, logging.NewNop(), newLimiter(0.001, 1))
	ask := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"message":"q"}`)))
		return rec
	}

	assert.Equal(t, http.StatusOK, ask().Code)
	rec := ask()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newRouter(&fakeRunner{}, logging.NewNop(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestConnector(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Endpoint = "http://localhost:9000/mcp"
	c, err := connector(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, mcpclient.HTTPConnector{Endpoint: "http://localhost:9000/mcp"}, c)

	cfg = config.Default()
	cfg.Tools.Command, cfg.Tools.Args = "python", []string{"server.py"}
	c, err = connector(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, mcpclient.CommandConnector{Command: "python", Args: []string{"server.py"}}, c)

	c, err = connector(config.Default(), "relay.yaml")
	require.NoError(t, err)
	cc := c.(mcpclient.CommandConnector)
	assert.NotEmpty(t, cc.Command)
	assert.Equal(t, []string{"tools", "--config", "relay.yaml"}, cc.Args)
}

func TestBuiltinRegistry(t *testing.T) {
	reg, err := builtinRegistry(builtin.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := reg.Resolve("create_presentation")
	assert.True(t, ok)
	_, ok = reg.Resolve("search_web_presentation")
	assert.True(t, ok)
	allowed := grantAll(reg)
	assert.True(t, allowed["fs:write"])
	assert.True(t, allowed["network:outbound"])
}

func TestReadMessage(t *testing.T) {
	msg, err := readMessage([]string{"make", "slides"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "make slides", msg)

	msg, err = readMessage(nil, strings.NewReader("  from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", msg)

	_, err = readMessage(nil, strings.NewReader(""))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "relay dev")
}

func TestEvalCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.json"),
		[]byte(`{"message":"hi","outputs":["Hello."],"expect":{"contains":["Hello"],"steps":1}}`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"eval", dir, "--env-file", filepath.Join(dir, "none.env")})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "1/1 scenarios passed")
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	obs := printEvent(&buf)
	obs(agent.Event{Type: agent.EventToolCall, Step: 1, Tool: "search_web_presentation", Params: map[string]any{"query": "go"}})
	obs(agent.Event{Type: agent.EventToolResult, Step: 1, Tool: "search_web_presentation", Text: "abc"})
	obs(agent.Event{Type: agent.EventFinal, Step: 2, Text: "done"})

	out := buf.String()
	assert.Contains(t, out, "[step 1]")
	assert.Contains(t, out, "search_web_presentation")
	assert.Contains(t, out, "returned 3 bytes")
	assert.NotContains(t, out, "done")
}

func TestTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Name = "phi-2"
	c := &cobra.Command{Use: "ask"}
	var errOut bytes.Buffer
	c.SetErr(&errOut)

	tc := telemetryConfig(c, cfg)
	assert.Equal(t, "ask", tc.Command)
	assert.Equal(t, "ollama", tc.Provider)
	assert.Equal(t, "phi-2", tc.Model)
	assert.Equal(t, version, tc.Version)
	assert.Nil(t, tc.Export)

	cfg.Telemetry.Console = true
	assert.Same(t, &errOut, telemetryConfig(c, cfg).Export)
}
