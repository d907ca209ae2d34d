package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/internal/agentobs"
	"github.com/haasonsaas/agentcore/internal/agentsession"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

type chatFlags struct {
	provider      string
	model         string
	apiKeyEnv     string
	systemText    string
	maxTurns      int
	sqlitePath    string
	sessionID     string
	traceEndpoint string
	traceInsecure bool
}

func buildChatCmd() *cobra.Command {
	var f chatFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive REPL: each line is a user turn, driven through Start/Continue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.provider, "provider", "mock", "LLM provider: mock, anthropic, or openai")
	cmd.Flags().StringVar(&f.model, "model", "", "Model handle passed to the provider")
	cmd.Flags().StringVar(&f.apiKeyEnv, "api-key-env", "", "Environment variable holding the provider API key")
	cmd.Flags().StringVar(&f.systemText, "system", "You are a helpful assistant.", "System prompt for a new session")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 5, "Maximum turn_start cycles per REPL line")
	cmd.Flags().StringVar(&f.sqlitePath, "session-db", "", "SQLite file to persist the session across invocations; empty means in-memory only")
	cmd.Flags().StringVar(&f.sessionID, "session-id", "default", "Session ID to load/save within --session-db")
	cmd.Flags().StringVar(&f.traceEndpoint, "trace-endpoint", "", "OTLP/gRPC collector address; empty disables span export")
	cmd.Flags().BoolVar(&f.traceInsecure, "trace-insecure", true, "Dial the collector without TLS")

	return cmd
}

func runChat(ctx context.Context, f chatFlags) error {
	adapter, err := buildAdapter(ctx, f.provider, f.apiKeyEnv)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}

	stopTracing, err := agentobs.SetupTracerProvider(ctx, agentobs.ProviderConfig{
		ServiceName: "agentcore-demo",
		Endpoint:    f.traceEndpoint,
		Insecure:    f.traceInsecure,
	})
	if err != nil {
		return fmt.Errorf("setup tracer provider: %w", err)
	}
	defer stopTracing(ctx)
	tracer := agentobs.NewTracer(agentobs.TracerConfig{ServiceName: "agentcore-demo"})

	var store agentsession.Store
	agentCtx := &agentconfig.Context{SystemPrompt: f.systemText}
	if f.sqlitePath != "" {
		sqliteStore, err := agentsession.NewSQLiteStore(f.sqlitePath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		store = sqliteStore
		defer store.Close()

		loaded, err := store.Load(ctx, f.sessionID)
		if errors.Is(err, agentsession.ErrNotFound) {
			slog.Info("starting new session", "session_id", f.sessionID)
		} else if err != nil {
			return fmt.Errorf("load session: %w", err)
		} else {
			agentCtx = loaded
			fmt.Printf("resumed session %q with %d messages\n", f.sessionID, len(agentCtx.Messages))
		}
	}

	cfg := agentconfig.Config{
		Model:         f.model,
		Adapter:       adapter,
		GetAPIKey:     resolveAPIKeyFromEnv(f.apiKeyEnv),
		MaxIterations: f.maxTurns,
		Logger:        slog.Default(),
		EventSinks:    []agentevent.Sink{tracer},
	}

	fmt.Println("type a message and press enter; Ctrl+D to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		stream, err := stepChat(ctx, line, agentCtx, cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		// printEvents drains the stream to completion, by which point
		// Start/Continue have already appended the run's new messages to
		// agentCtx.Messages in place.
		printEvents(stream)

		if store != nil {
			if err := store.Save(ctx, f.sessionID, agentCtx); err != nil {
				fmt.Fprintln(os.Stderr, "warning: failed to save session:", err)
			}
		}
	}

	return scanner.Err()
}

// stepChat appends one user line and runs a turn: Start for the first line
// of a fresh context, Continue for every line after.
func stepChat(ctx context.Context, line string, agentCtx *agentconfig.Context, cfg agentconfig.Config) (*agentevent.Stream, error) {
	if len(agentCtx.Messages) == 0 {
		return startAgent(ctx, []agentmsg.Message{agentmsg.NewUserText(line)}, agentCtx, cfg)
	}
	agentCtx.Messages = append(agentCtx.Messages, agentmsg.NewUserText(line))
	return continueAgent(ctx, agentCtx, cfg)
}
