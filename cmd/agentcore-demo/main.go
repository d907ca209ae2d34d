// Package main provides agentcore-demo, a command-line harness that drives
// the agent loop end to end against a real or mock LLM provider: a
// single-shot "run" command and an interactive "chat" REPL, both backed by
// the same Start/Continue entry points a library caller would use.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentcore-demo",
		Short:         "Exercise the agent loop against a real or mock provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildRunCmd(), buildChatCmd())
	return root
}
