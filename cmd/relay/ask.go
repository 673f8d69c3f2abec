package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wilhg/relay/pkg/agent"
	"github.com/wilhg/relay/pkg/otel"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Answer one message, calling tools as the model requests",
	Long: `Runs the reasoning loop once. The message is taken from the arguments or,
when none are given, from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		message, err := readMessage(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := otel.Init(ctx, telemetryConfig(cmd, cfg))
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()

		var extra []agent.Option
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			extra = append(extra, agent.WithObserver(printEvent(cmd.ErrOrStderr())))
		}
		configPath, _ := cmd.Flags().GetString("config")
		ctrl, err := buildController(ctx, cfg, configPath, logger, extra...)
		if err != nil {
			return err
		}

		res := ctrl.Run(ctx, message)
		raw, _ := cmd.Flags().GetBool("raw")
		fmt.Fprintln(cmd.OutOrStdout(), render(res.Text, raw))
		if res.DepthExceeded {
			return fmt.Errorf("no final answer after %d steps", res.Steps)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolP("verbose", "v", false, "print model output and tool calls to stderr")
	askCmd.Flags().Bool("raw", false, "print the answer without markdown rendering")
}

func readMessage(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return "", errors.New("no message given")
	}
	return msg, nil
}

// render formats the answer as terminal markdown when stdout is a terminal.
func render(text string, raw bool) string {
	fd := int(os.Stdout.Fd()) //nolint:gosec // file descriptors fit in int
	if raw || !term.IsTerminal(fd) {
		return text
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func printEvent(w io.Writer) agent.Observer {
	return func(e agent.Event) {
		step := stepStyle.Render(fmt.Sprintf("[step %d]", e.Step))
		switch e.Type {
		case agent.EventModelOutput:
			fmt.Fprintf(w, "%s model:\n%s\n\n", step, modelTextStyle.Render(e.Text))
		case agent.EventModelError:
			fmt.Fprintf(w, "%s %s\n", step, toolErrorStyle.Render(fmt.Sprintf("model error: %v", e.Err)))
		case agent.EventToolCall:
			fmt.Fprintf(w, "%s calling %s %v\n", step, toolNameStyle.Render(e.Tool), e.Params)
		case agent.EventToolResult:
			fmt.Fprintf(w, "%s %s %s\n", step, toolNameStyle.Render(e.Tool), toolResultStyle.Render(fmt.Sprintf("returned %d bytes", len(e.Text))))
		case agent.EventToolError:
			fmt.Fprintf(w, "%s %s %s\n", step, toolNameStyle.Render(e.Tool), toolErrorStyle.Render(fmt.Sprintf("failed: %v", e.Err)))
		case agent.EventSkippedCall:
			fmt.Fprintf(w, "%s %s\n", step, skippedStyle.Render(fmt.Sprintf("skipped call: %v", e.Err)))
		}
	}
}
