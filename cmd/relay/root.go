package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wilhg/relay/internal/config"
	"github.com/wilhg/relay/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay lets a local language model chain MCP tool calls into one answer",
	Long: `relay prompts a language model with the tools an MCP server advertises,
runs the tool calls it writes into its replies, and feeds the results back
until the model answers in plain text or runs out of reasoning steps.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a relay YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "text or json (overrides config)")
}

// setup loads configuration and builds the logger shared by every command.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	logger := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)
	return cfg, logger, nil
}
