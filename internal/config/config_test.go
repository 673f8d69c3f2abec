package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestGetEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	assert.Equal(t, "bar", getEnv("FOO", "default"))
	assert.Equal(t, "default", getEnv("MISSING_RELAY_TEST_KEY", "default"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, 5, cfg.Agent.MaxSteps)
	assert.Equal(t, []string{"User:", "\n\nUser:"}, cfg.Model.Stop)
	assert.True(t, cfg.Agent.FailureMarkers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Setenv("SEARCH_KEY_FOR_TEST", "exa-123")
	t.Setenv("RELAY_MAX_STEPS", "7")
	p := writeFile(t, "relay.yaml", `
model:
  provider: openai
  name: phi-2
  base_url: http://localhost:8081/v1
  temperature: 0.1
agent:
  failure_markers: false
tools:
  command: python
  args: [server.py]
builtin:
  search_api_key: ${SEARCH_KEY_FOR_TEST}
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.InDelta(t, 0.1, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.Model.MaxTokens, "unset fields keep defaults")
	assert.False(t, cfg.Agent.FailureMarkers)
	assert.Equal(t, 7, cfg.Agent.MaxSteps)
	assert.Equal(t, []string{"server.py"}, cfg.Tools.Args)
	assert.Equal(t, "exa-123", cfg.Builtin.SearchAPIKey)
	assert.Equal(t, map[string]any{"model": "phi-2", "base_url": "http://localhost:8081/v1"}, cfg.Model.ProviderConfig())
}

func TestLoad_ProviderOnlyLeavesModelToProvider(t *testing.T) {
	t.Setenv("RELAY_PROVIDER", "gemini")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Empty(t, cfg.Model.Name)
	assert.NotContains(t, cfg.Model.ProviderConfig(), "model")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config: load")

	_, err = Load(writeFile(t, "bad.yaml", "model:\n  bogus: 1\n"))
	assert.ErrorContains(t, err, "config: parse")

	t.Setenv("RELAY_MAX_TOKENS", "lots")
	_, err = Load("")
	assert.ErrorContains(t, err, "RELAY_MAX_TOKENS")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"max_steps":   func(c *Config) { c.Agent.MaxSteps = 0 },
		"max_tokens":  func(c *Config) { c.Model.MaxTokens = -1 },
		"temperature": func(c *Config) { c.Model.Temperature = 2.5 },
		"provider":    func(c *Config) { c.Model.Provider = "" },
		"exclusive":   func(c *Config) { c.Tools.Command = "x"; c.Tools.Endpoint = "http://y" },
		"args":        func(c *Config) { c.Tools.Args = []string{"a"} },
		"log_format":  func(c *Config) { c.Log.Format = "xml" },
		"rate_limit":  func(c *Config) { c.Server.RateLimit = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Model.MaxTokens = 0
	assert.ErrorContains(t, cfg.Validate(), "model.max_tokens: must satisfy gt=0 (got 0)")
	assert.NoError(t, Default().Validate())
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	p := writeFile(t, ".env", "RELAY_DOTENV_PROBE=yes\n")
	t.Cleanup(func() { _ = os.Unsetenv("RELAY_DOTENV_PROBE") })
	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "yes", os.Getenv("RELAY_DOTENV_PROBE"))
}
