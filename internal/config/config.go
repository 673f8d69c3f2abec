// Package config loads relay's settings from an optional YAML file and
// RELAY_* environment variables, in that order of precedence (env wins).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Agent     AgentConfig     `yaml:"agent"`
	Tools     ToolsConfig     `yaml:"tools"`
	Builtin   BuiltinConfig   `yaml:"builtin"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ModelConfig selects the inference provider and generation settings.
type ModelConfig struct {
	Provider      string   `yaml:"provider" validate:"required"`
	Name          string   `yaml:"name"`
	BaseURL       string   `yaml:"base_url"`
	APIKey        string   `yaml:"api_key"` //nolint:gosec // configuration field
	MaxTokens     int      `yaml:"max_tokens" validate:"gt=0"`
	Temperature   float64  `yaml:"temperature" validate:"gte=0,lte=2"`
	Stop          []string `yaml:"stop"`
	ContextWindow int      `yaml:"context_window" validate:"gte=0"`
	// Tokenizer is a tiktoken model or encoding name; empty uses a
	// character-based estimate.
	Tokenizer string `yaml:"tokenizer"`
}

type AgentConfig struct {
	MaxSteps       int    `yaml:"max_steps" validate:"gt=0"`
	FailureMarkers bool   `yaml:"failure_markers"`
	PreambleFile   string `yaml:"preamble_file"`
}

// ToolsConfig points at the MCP tool service. With neither Command nor
// Endpoint set, relay spawns its own built-in tool server.
type ToolsConfig struct {
	Command  string   `yaml:"command" validate:"excluded_with=Endpoint"`
	Args     []string `yaml:"args" validate:"excluded_without=Command"`
	Endpoint string   `yaml:"endpoint"`
	Validate bool     `yaml:"validate"`
}

// BuiltinConfig configures the tools served by `relay tools`.
type BuiltinConfig struct {
	OutputDir    string `yaml:"output_dir"`
	SearchAPIKey string `yaml:"search_api_key"` //nolint:gosec // configuration field
	SearchURL    string `yaml:"search_url"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit caps /api/ask requests per second; 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type TelemetryConfig struct {
	// Console prints finished spans as JSON to stderr.
	Console bool `yaml:"console"`
}

// Default mirrors the settings the loop was tuned with: a small local model
// (the ollama provider falls back to phi), short completions, five steps.
// Name stays empty so each provider picks its own default model.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:      "ollama",
			MaxTokens:     1024,
			Temperature:   0.3,
			Stop:          []string{"User:", "\n\nUser:"},
			ContextWindow: 2048,
		},
		Agent:   AgentConfig{MaxSteps: 5, FailureMarkers: true},
		Tools:   ToolsConfig{Validate: true},
		Builtin: BuiltinConfig{OutputDir: "."},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), and environment overrides, then validates it. ${VAR} references in
// the file are expanded first.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
		if err != nil {
			return Config{}, fmt.Errorf("config: load: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Model.Provider = getEnv("RELAY_PROVIDER", c.Model.Provider)
	c.Model.Name = getEnv("RELAY_MODEL", c.Model.Name)
	c.Model.BaseURL = getEnv("RELAY_BASE_URL", c.Model.BaseURL)
	c.Model.APIKey = getEnv("RELAY_API_KEY", c.Model.APIKey)
	c.Model.Tokenizer = getEnv("RELAY_TOKENIZER", c.Model.Tokenizer)
	c.Agent.PreambleFile = getEnv("RELAY_PREAMBLE_FILE", c.Agent.PreambleFile)
	c.Tools.Command = getEnv("RELAY_TOOLS_COMMAND", c.Tools.Command)
	c.Tools.Endpoint = getEnv("RELAY_TOOLS_ENDPOINT", c.Tools.Endpoint)
	c.Builtin.OutputDir = getEnv("RELAY_OUTPUT_DIR", c.Builtin.OutputDir)
	c.Builtin.SearchAPIKey = getEnv("EXA_API_KEY", c.Builtin.SearchAPIKey)
	c.Server.Addr = getEnv("RELAY_ADDR", c.Server.Addr)
	c.Log.Level = getEnv("RELAY_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("RELAY_LOG_FORMAT", c.Log.Format)

	var err error
	if c.Model.MaxTokens, err = getEnvInt("RELAY_MAX_TOKENS", c.Model.MaxTokens); err != nil {
		return err
	}
	if c.Model.ContextWindow, err = getEnvInt("RELAY_CONTEXT_WINDOW", c.Model.ContextWindow); err != nil {
		return err
	}
	if c.Agent.MaxSteps, err = getEnvInt("RELAY_MAX_STEPS", c.Agent.MaxSteps); err != nil {
		return err
	}
	if v := os.Getenv("RELAY_TEMPERATURE"); v != "" {
		t, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("config: RELAY_TEMPERATURE: %w", perr)
		}
		c.Model.Temperature = t
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration is internally consistent. Errors
// name the offending key by its YAML path.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s (got %v)", key, rule, fe.Value()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// ProviderConfig is the cfg map handed to the llm factory.
func (m ModelConfig) ProviderConfig() map[string]any {
	cfg := map[string]any{}
	if m.Name != "" {
		cfg["model"] = m.Name
	}
	if m.BaseURL != "" {
		cfg["base_url"] = m.BaseURL
	}
	if m.APIKey != "" {
		cfg["api_key"] = m.APIKey
	}
	return cfg
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
