// Package agentobs wires an agent run's event stream into OpenTelemetry
// spans and Prometheus counters so a deployment can see run/turn/tool
// latency and volume in its existing observability stack.
package agentobs

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/agentcore/internal/agentevent"
)

// TracerConfig configures the span tree a Tracer builds from one run's
// events.
type TracerConfig struct {
	// ServiceName identifies the tracer, passed to otel.Tracer.
	ServiceName string
}

// Tracer consumes an agentevent.Sink feed and maps it onto a span per run,
// a child span per turn, and a child span per tool execution. It
// implements agentevent.Sink so it can be fanned in via a MultiSink
// alongside the Stream's own sealing sink.
type Tracer struct {
	tracer trace.Tracer

	mu       sync.Mutex
	runSpans map[string]trace.Span
	runCtx   map[string]context.Context

	turnSpans map[string]trace.Span
	turnCtx   map[string]context.Context

	toolSpans map[string]trace.Span
}

// NewTracer constructs a Tracer over the global otel TracerProvider. A
// deployment without tracing configured gets the otel no-op tracer, so
// this is always safe to wire in.
func NewTracer(cfg TracerConfig) *Tracer {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentcore"
	}
	return &Tracer{
		tracer:    otel.Tracer(cfg.ServiceName),
		runSpans:  make(map[string]trace.Span),
		runCtx:    make(map[string]context.Context),
		turnSpans: make(map[string]trace.Span),
		turnCtx:   make(map[string]context.Context),
		toolSpans: make(map[string]trace.Span),
	}
}

// Emit implements agentevent.Sink.
func (t *Tracer) Emit(e agentevent.Event) {
	switch e.Type {
	case agentevent.AgentStart:
		t.startRun(e)
	case agentevent.AgentEnd:
		t.endRun(e)
	case agentevent.TurnStart:
		t.startTurn(e)
	case agentevent.TurnEnd:
		t.endTurn(e)
	case agentevent.ToolExecutionStart:
		t.startTool(e)
	case agentevent.ToolExecutionEnd:
		t.endTool(e)
	case agentevent.AdvisorStart:
		t.startAdvisor(e)
	case agentevent.AdvisorEnd:
		t.endAdvisor(e, false)
	case agentevent.AdvisorError:
		t.endAdvisor(e, true)
	}
}

func (t *Tracer) startRun(e agentevent.Event) {
	ctx, span := t.tracer.Start(context.Background(), "agent.run", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("agentcore.run_id", e.RunID)))

	t.mu.Lock()
	t.runSpans[e.RunID] = span
	t.runCtx[e.RunID] = ctx
	t.mu.Unlock()
}

func (t *Tracer) endRun(e agentevent.Event) {
	t.mu.Lock()
	span, ok := t.runSpans[e.RunID]
	delete(t.runSpans, e.RunID)
	delete(t.runCtx, e.RunID)
	t.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("agentcore.new_messages", len(e.NewMessages)))
	span.End()
}

func (t *Tracer) runContext(runID string) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx, ok := t.runCtx[runID]; ok {
		return ctx
	}
	return context.Background()
}

func (t *Tracer) startTurn(e agentevent.Event) {
	parent := t.runContext(e.RunID)
	ctx, span := t.tracer.Start(parent, "agent.turn", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agentcore.run_id", e.RunID),
			attribute.Int("agentcore.turn_index", e.TurnIndex),
		))

	key := turnKey(e.RunID, e.TurnIndex)
	t.mu.Lock()
	t.turnSpans[key] = span
	t.turnCtx[key] = ctx
	t.mu.Unlock()
}

func (t *Tracer) endTurn(e agentevent.Event) {
	key := turnKey(e.RunID, e.TurnIndex)
	t.mu.Lock()
	span, ok := t.turnSpans[key]
	delete(t.turnSpans, key)
	delete(t.turnCtx, key)
	t.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("agentcore.tool_results", len(e.ToolResults)))
	span.End()
}

func (t *Tracer) turnContext(runID string, turnIndex int) context.Context {
	key := turnKey(runID, turnIndex)
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx, ok := t.turnCtx[key]; ok {
		return ctx
	}
	return t.runContext(runID)
}

func (t *Tracer) startTool(e agentevent.Event) {
	if e.Tool == nil {
		return
	}
	parent := t.turnContext(e.RunID, e.TurnIndex)
	_, span := t.tracer.Start(parent, "agent.tool."+e.Tool.ToolName, trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agentcore.tool_call_id", e.Tool.ToolCallID),
			attribute.String("agentcore.tool_name", e.Tool.ToolName),
		))

	t.mu.Lock()
	t.toolSpans[e.Tool.ToolCallID] = span
	t.mu.Unlock()
}

func (t *Tracer) endTool(e agentevent.Event) {
	if e.Tool == nil {
		return
	}
	t.mu.Lock()
	span, ok := t.toolSpans[e.Tool.ToolCallID]
	delete(t.toolSpans, e.Tool.ToolCallID)
	t.mu.Unlock()
	if !ok {
		return
	}
	if e.Tool.IsError {
		span.SetStatus(codes.Error, "tool execution failed")
	}
	span.End()
}

func (t *Tracer) startAdvisor(e agentevent.Event) {
	if e.Advisor == nil {
		return
	}
	parent := t.runContext(e.RunID)
	_, span := t.tracer.Start(parent, "agent.advisor."+e.Advisor.AdvisorName, trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("agentcore.advisor_name", e.Advisor.AdvisorName)))
	span.End()
}

func (t *Tracer) endAdvisor(e agentevent.Event, isError bool) {
	if e.Advisor == nil || !isError {
		return
	}
	_, span := t.tracer.Start(t.runContext(e.RunID), "agent.advisor."+e.Advisor.AdvisorName+".error")
	span.RecordError(e.Advisor.Err)
	span.SetStatus(codes.Error, "advisor failed")
	span.End()
}

func turnKey(runID string, turnIndex int) string {
	return runID + "#" + strconv.Itoa(turnIndex)
}
