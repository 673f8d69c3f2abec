package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wilhg/relay/pkg/agent"
	"github.com/wilhg/relay/pkg/eval"
	"github.com/wilhg/relay/pkg/prompt"
)

var evalCmd = &cobra.Command{
	Use:   "eval DIR",
	Short: "Replay recorded scenarios through the reasoning loop",
	Long: `Runs every *.json scenario in DIR against the configured loop settings and
preamble, using the recorded model outputs and canned tool results in each
file instead of a live model and tool service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		opts := []agent.Option{
			agent.WithLogger(logger),
			agent.WithMaxSteps(cfg.Agent.MaxSteps),
			agent.WithFailureMarkers(cfg.Agent.FailureMarkers),
		}
		if cfg.Agent.PreambleFile != "" {
			p, err := prompt.Load(cfg.Agent.PreambleFile)
			if err != nil {
				return err
			}
			opts = append(opts, agent.WithPreamble(p))
		}
		rep, err := eval.Evaluate(cmd.Context(), os.DirFS(args[0]), ".", opts...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range rep.Details {
			fmt.Fprintln(out, "FAIL", d)
		}
		fmt.Fprintf(out, "%d/%d scenarios passed (score %.2f)\n", rep.Passed, rep.Total, rep.Score)
		if rep.Passed != rep.Total {
			return fmt.Errorf("%d scenarios failed", rep.Total-rep.Passed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
