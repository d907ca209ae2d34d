package agentobs

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/agentevent"
)

func TestTracer_RunTurnToolLifecycle(t *testing.T) {
	tr := NewTracer(TracerConfig{ServiceName: "test"})

	tr.Emit(agentevent.Event{Type: agentevent.AgentStart, RunID: "run-1"})
	tr.Emit(agentevent.Event{Type: agentevent.TurnStart, RunID: "run-1", TurnIndex: 0})
	tr.Emit(agentevent.Event{
		Type:  agentevent.ToolExecutionStart,
		RunID: "run-1", TurnIndex: 0,
		Tool: &agentevent.ToolExecutionPayload{ToolCallID: "call-1", ToolName: "lookup"},
	})
	tr.Emit(agentevent.Event{
		Type:  agentevent.ToolExecutionEnd,
		RunID: "run-1", TurnIndex: 0,
		Tool: &agentevent.ToolExecutionPayload{ToolCallID: "call-1", ToolName: "lookup", IsError: true},
	})
	tr.Emit(agentevent.Event{Type: agentevent.TurnEnd, RunID: "run-1", TurnIndex: 0})
	tr.Emit(agentevent.Event{Type: agentevent.AgentEnd, RunID: "run-1"})

	// Spans are cleaned up (maps drained) once each end event is processed.
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.runSpans) != 0 {
		t.Errorf("runSpans not cleaned up: %d remaining", len(tr.runSpans))
	}
	if len(tr.turnSpans) != 0 {
		t.Errorf("turnSpans not cleaned up: %d remaining", len(tr.turnSpans))
	}
	if len(tr.toolSpans) != 0 {
		t.Errorf("toolSpans not cleaned up: %d remaining", len(tr.toolSpans))
	}
}

func TestTracer_AdvisorError(t *testing.T) {
	tr := NewTracer(TracerConfig{})
	tr.Emit(agentevent.Event{Type: agentevent.AgentStart, RunID: "run-1"})
	// Should not panic even though the advisor has no dedicated span state.
	tr.Emit(agentevent.Event{
		Type:    agentevent.AdvisorError,
		RunID:   "run-1",
		Advisor: &agentevent.AdvisorPayload{AdvisorName: "reviewer", Err: errBoom},
	})
	tr.Emit(agentevent.Event{Type: agentevent.AgentEnd, RunID: "run-1"})
}

func TestTurnKey_Unique(t *testing.T) {
	if turnKey("run-1", 1) == turnKey("run-1", 2) {
		t.Error("turnKey should differ by turn index")
	}
	if turnKey("run-1", 1) == turnKey("run-2", 1) {
		t.Error("turnKey should differ by run id")
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
