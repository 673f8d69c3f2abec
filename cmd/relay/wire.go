package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wilhg/relay/internal/config"
	"github.com/wilhg/relay/pkg/adapters/llm"
	_ "github.com/wilhg/relay/pkg/adapters/llm/gemini"
	_ "github.com/wilhg/relay/pkg/adapters/llm/ollama"
	_ "github.com/wilhg/relay/pkg/adapters/llm/openai"
	"github.com/wilhg/relay/pkg/agent"
	"github.com/wilhg/relay/pkg/catalog"
	"github.com/wilhg/relay/pkg/dispatch"
	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/otel"
	"github.com/wilhg/relay/pkg/prompt"
	"github.com/wilhg/relay/pkg/tokens"
	"github.com/wilhg/relay/pkg/tool"
)

// connector picks the tool service transport. With nothing configured relay
// spawns itself as the built-in tool server, forwarding --config so the child
// sees the same builtin settings.
func connector(cfg config.Config, configPath string) (mcpclient.Connector, error) {
	switch {
	case cfg.Tools.Endpoint != "":
		return mcpclient.HTTPConnector{Endpoint: cfg.Tools.Endpoint}, nil
	case cfg.Tools.Command != "":
		return mcpclient.CommandConnector{Command: cfg.Tools.Command, Args: cfg.Tools.Args}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate relay binary for built-in tools: %w", err)
	}
	args := []string{"tools"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return mcpclient.CommandConnector{Command: self, Args: args}, nil
}

func estimator(cfg config.Config, logger *slog.Logger) tokens.Estimator {
	if cfg.Model.Tokenizer == "" {
		return tokens.Approx
	}
	est, err := tokens.NewTikToken(cfg.Model.Tokenizer)
	if err != nil {
		logger.Warn("tokenizer unavailable; using character estimate", "tokenizer", cfg.Model.Tokenizer, "err", err)
		return tokens.Approx
	}
	return est
}

// buildController wires the model, tool service, and loop settings.
func buildController(ctx context.Context, cfg config.Config, configPath string, logger *slog.Logger, extra ...agent.Option) (*agent.Controller, error) {
	model, err := llm.Open(ctx, cfg.Model.Provider, cfg.Model.ProviderConfig())
	if err != nil {
		return nil, err
	}
	conn, err := connector(cfg, configPath)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(conn, catalog.WithLogger(logger), catalog.WithSchemaCheck())
	dopts := []dispatch.Option{dispatch.WithLogger(logger)}
	if cfg.Tools.Validate {
		dopts = append(dopts, dispatch.WithValidator(tool.JSONSchemaValidator, nil))
	}
	disp := dispatch.New(conn, dopts...)

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithMaxTokens(cfg.Model.MaxTokens),
		agent.WithTemperature(cfg.Model.Temperature),
		agent.WithStop(cfg.Model.Stop...),
		agent.WithFailureMarkers(cfg.Agent.FailureMarkers),
		agent.WithContextWindow(cfg.Model.ContextWindow, estimator(cfg, logger)),
	}
	if cfg.Agent.PreambleFile != "" {
		p, err := prompt.Load(cfg.Agent.PreambleFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, agent.WithPreamble(p))
	}
	opts = append(opts, extra...)
	logger.Debug("controller ready", "provider", model.Name(), "model", cfg.Model.Name, "max_steps", cfg.Agent.MaxSteps)
	return agent.New(model, cat, disp, opts...), nil
}

// telemetryConfig tags spans with the running command and model. Console
// export goes to stderr.
func telemetryConfig(cmd *cobra.Command, cfg config.Config) otel.Config {
	tc := otel.Config{
		Version:  version,
		Command:  cmd.Name(),
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Name,
	}
	if cfg.Telemetry.Console {
		tc.Export = cmd.ErrOrStderr()
	}
	return tc
}
