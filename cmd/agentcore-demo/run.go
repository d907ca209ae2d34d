package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/internal/agentobs"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

type runFlags struct {
	provider      string
	model         string
	apiKeyEnv     string
	systemText    string
	maxTurns      int
	metrics       bool
	metricsAddr   string
	traceEndpoint string
	traceInsecure bool
}

func buildRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run a single agent turn-taking session to completion and print the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.provider, "provider", "mock", "LLM provider: mock, anthropic, or openai")
	cmd.Flags().StringVar(&f.model, "model", "", "Model handle passed to the provider")
	cmd.Flags().StringVar(&f.apiKeyEnv, "api-key-env", "", "Environment variable holding the provider API key (defaults to <PROVIDER>_API_KEY)")
	cmd.Flags().StringVar(&f.systemText, "system", "You are a helpful assistant.", "System prompt")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 5, "Maximum turn_start cycles before the run is stopped")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Serve Prometheus metrics for this run on --metrics-addr")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "127.0.0.1:9090", "Address to serve /metrics on when --metrics is set")
	cmd.Flags().StringVar(&f.traceEndpoint, "trace-endpoint", "", "OTLP/gRPC collector address; empty disables span export")
	cmd.Flags().BoolVar(&f.traceInsecure, "trace-insecure", true, "Dial the collector without TLS")

	return cmd
}

func runOnce(ctx context.Context, prompt string, f runFlags) error {
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

	sinks, stopMetrics := wireObservability(f.metrics, f.metricsAddr)
	defer stopMetrics()

	agentCtx := &agentconfig.Context{SystemPrompt: f.systemText}
	cfg := agentconfig.Config{
		Model:         f.model,
		Adapter:       adapter,
		GetAPIKey:     resolveAPIKeyFromEnv(f.apiKeyEnv),
		MaxIterations: f.maxTurns,
		Logger:        slog.Default(),
		EventSinks:    sinks,
	}

	stream, err := startAgent(ctx, []agentmsg.Message{agentmsg.NewUserText(prompt)}, agentCtx, cfg)
	if err != nil {
		return err
	}

	n := printEvents(stream)
	fmt.Printf("\n(%d new messages appended to the log)\n", n)
	return nil
}

// wireObservability optionally stands up a Tracer+Metrics pair fanned into
// the run's EventSinks, and serves /metrics over HTTP if requested. The
// returned stop func must be called once the run (or REPL session) ends.
func wireObservability(enableMetrics bool, addr string) ([]agentevent.Sink, func()) {
	tracer := agentobs.NewTracer(agentobs.TracerConfig{ServiceName: "agentcore-demo"})
	if !enableMetrics {
		return []agentevent.Sink{tracer}, func() {}
	}

	reg := prometheus.NewRegistry()
	metrics := agentobs.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
	return []agentevent.Sink{tracer, metrics}, stop
}
