package agentobs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return 0
}

func TestMetrics_RunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Emit(agentevent.Event{Type: agentevent.AgentStart, RunID: "run-1"})
	if got := counterValue(t, m.RunsStarted); got != 1 {
		t.Errorf("RunsStarted = %v, want 1", got)
	}

	m.Emit(agentevent.Event{
		Type:  agentevent.AgentEnd,
		RunID: "run-1",
		NewMessages: []agentmsg.Message{
			agentmsg.AssistantMessage{StopReason: agentmsg.StopOK},
		},
	})
	if got := counterValue(t, m.RunsCompleted.WithLabelValues("stop")); got != 1 {
		t.Errorf("RunsCompleted{stop_reason=stop} = %v, want 1", got)
	}
}

func TestMetrics_ToolExecution(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Emit(agentevent.Event{
		Type:  agentevent.ToolExecutionStart,
		RunID: "run-1",
		Tool:  &agentevent.ToolExecutionPayload{ToolCallID: "call-1", ToolName: "lookup"},
	})
	time.Sleep(time.Millisecond)
	m.Emit(agentevent.Event{
		Type:  agentevent.ToolExecutionEnd,
		RunID: "run-1",
		Tool:  &agentevent.ToolExecutionPayload{ToolCallID: "call-1", ToolName: "lookup", IsError: false},
	})

	if got := counterValue(t, m.ToolExecutions.WithLabelValues("lookup", "success")); got != 1 {
		t.Errorf("ToolExecutions{lookup,success} = %v, want 1", got)
	}
}

func TestMetrics_ToolExecutionError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Emit(agentevent.Event{
		Type:  agentevent.ToolExecutionEnd,
		RunID: "run-1",
		Tool:  &agentevent.ToolExecutionPayload{ToolCallID: "call-2", ToolName: "broken", IsError: true},
	})

	if got := counterValue(t, m.ToolExecutions.WithLabelValues("broken", "error")); got != 1 {
		t.Errorf("ToolExecutions{broken,error} = %v, want 1", got)
	}
}

func TestMetrics_AdvisorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Emit(agentevent.Event{Type: agentevent.AdvisorStart, Advisor: &agentevent.AdvisorPayload{AdvisorName: "reviewer"}})
	m.Emit(agentevent.Event{Type: agentevent.AdvisorError, Advisor: &agentevent.AdvisorPayload{AdvisorName: "reviewer"}})

	if got := counterValue(t, m.AdvisorFired.WithLabelValues("reviewer")); got != 1 {
		t.Errorf("AdvisorFired = %v, want 1", got)
	}
	if got := counterValue(t, m.AdvisorErrors.WithLabelValues("reviewer")); got != 1 {
		t.Errorf("AdvisorErrors = %v, want 1", got)
	}
}

func TestStopReason_NoAssistantMessage(t *testing.T) {
	got := stopReason(agentevent.Event{NewMessages: []agentmsg.Message{agentmsg.UserMessage{}}})
	if got != "unknown" {
		t.Errorf("stopReason = %q, want unknown", got)
	}
}
