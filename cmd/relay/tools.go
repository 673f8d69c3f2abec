package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wilhg/relay/pkg/catalog"
	"github.com/wilhg/relay/pkg/mcpserver"
	"github.com/wilhg/relay/pkg/tool"
	"github.com/wilhg/relay/pkg/tool/builtin"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Serve the built-in tools over MCP stdio",
	Long: `Serves create_presentation and search_web_presentation as an MCP server on
stdin/stdout. relay spawns this itself when no tool service is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, err := builtinRegistry(builtin.Config{
			OutputDir:    cfg.Builtin.OutputDir,
			SearchAPIKey: cfg.Builtin.SearchAPIKey,
			SearchURL:    cfg.Builtin.SearchURL,
		})
		if err != nil {
			return err
		}
		srv := mcpserver.New("relay-tools", version, mcpserver.WithLogger(logger))
		if err := srv.RegisterFromRegistry(reg, grantAll(reg), tool.JSONSchemaValidator); err != nil {
			return err
		}
		logger.Debug("serving built-in tools on stdio")
		return srv.ServeStdio(ctx)
	},
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the tools the configured tool service advertises",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		configPath, _ := cmd.Flags().GetString("config")
		conn, err := connector(cfg, configPath)
		if err != nil {
			return err
		}
		tools, err := catalog.New(conn, catalog.WithLogger(logger)).Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), catalog.Render(tools))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
}

func builtinRegistry(cfg builtin.Config) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	if err := builtin.Register(reg, cfg); err != nil {
		return nil, err
	}
	return reg, nil
}

// grantAll allows every permission the registered tools declare; the
// operator opted in by configuring them.
func grantAll(reg *tool.Registry) map[string]bool {
	allowed := map[string]bool{}
	reg.Range(func(_ string, t tool.Tool) {
		for _, p := range t.Describe().Permissions {
			allowed[p.Name] = true
		}
	})
	return allowed
}
