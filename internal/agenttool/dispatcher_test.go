package agenttool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

type echoTool struct{}

func (echoTool) Name() string               { return "echo" }
func (echoTool) Label() string               { return "Echo" }
func (echoTool) Description() string         { return "echoes its input" }
func (echoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"value":{"type":"string"}},"required":["value"]}`)
}
func (echoTool) Execute(ctx context.Context, toolCallID string, args json.RawMessage, onUpdate UpdateFunc) (*Result, error) {
	var in struct {
		Value string `json:"value"`
	}
	_ = json.Unmarshal(args, &in)
	return &Result{Content: []agentmsg.Block{agentmsg.TextBlock("echoed: " + in.Value)}}, nil
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.Register(echoTool{}); err != nil {
		t.Fatal(err)
	}
	return r
}

func assistantWithCalls(calls ...agentmsg.Block) agentmsg.AssistantMessage {
	return agentmsg.AssistantMessage{Content: calls, StopReason: agentmsg.StopToolUse}
}

func TestDispatchMissingTool(t *testing.T) {
	d := NewDispatcher(Config{Registry: NewRegistry()})
	var events []agentevent.Event
	e := agentevent.NewEmitter("r", agentevent.NewCallbackSink(func(ev agentevent.Event) { events = append(events, ev) }))

	assistant := assistantWithCalls(agentmsg.NewToolCallBlock("tc-1", "missing", nil))
	results, steering := d.Dispatch(context.Background(), e, assistant)

	if steering != nil {
		t.Fatalf("expected no steering, got %v", steering)
	}
	if len(results) != 1 || !results[0].IsError {
		t.Fatalf("expected one error result, got %+v", results)
	}
	if results[0].Text("") != "Tool missing not found" {
		t.Fatalf("unexpected message: %q", results[0].Text(""))
	}
}

func TestDispatchSchemaValidationFailure(t *testing.T) {
	d := NewDispatcher(Config{Registry: newRegistry(t), Validator: NewSchemaValidator()})
	e := agentevent.NewEmitter("r", agentevent.NopSink{})

	assistant := assistantWithCalls(agentmsg.NewToolCallBlock("tc-1", "echo", []byte(`{}`)))
	results, _ := d.Dispatch(context.Background(), e, assistant)

	if len(results) != 1 || !results[0].IsError {
		t.Fatalf("expected schema validation error, got %+v", results)
	}
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(Config{Registry: newRegistry(t), Validator: NewSchemaValidator()})
	e := agentevent.NewEmitter("r", agentevent.NopSink{})

	assistant := assistantWithCalls(agentmsg.NewToolCallBlock("tc-1", "echo", []byte(`{"value":"x"}`)))
	results, steering := d.Dispatch(context.Background(), e, assistant)

	if steering != nil {
		t.Fatalf("expected no steering, got %v", steering)
	}
	if len(results) != 1 || results[0].IsError {
		t.Fatalf("expected success result, got %+v", results)
	}
	if got := results[0].Text(""); got != "echoed: x" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestDispatchSteeringSkipsRemainingWithPhantomPairing(t *testing.T) {
	var events []agentevent.Event
	e := agentevent.NewEmitter("r", agentevent.NewCallbackSink(func(ev agentevent.Event) { events = append(events, ev) }))

	steeringReturned := false
	d := NewDispatcher(Config{
		Registry:  newRegistry(t),
		Validator: NewSchemaValidator(),
		GetSteeringMessages: func() []agentmsg.Message {
			if steeringReturned {
				return nil
			}
			steeringReturned = true
			return []agentmsg.Message{agentmsg.NewUserText("stop and do X")}
		},
	})

	assistant := assistantWithCalls(
		agentmsg.NewToolCallBlock("tc-a", "echo", []byte(`{"value":"a"}`)),
		agentmsg.NewToolCallBlock("tc-b", "echo", []byte(`{"value":"b"}`)),
	)
	results, steering := d.Dispatch(context.Background(), e, assistant)

	if len(steering) != 1 {
		t.Fatalf("expected 1 steering message, got %d", len(steering))
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (1 real + 1 skipped), got %d", len(results))
	}
	if results[0].IsError {
		t.Fatalf("tc-a should have succeeded, got error: %+v", results[0])
	}
	if !results[1].IsError || results[1].Text("") != "Skipped due to queued user message." {
		t.Fatalf("tc-b should be a skipped error result, got %+v", results[1])
	}

	// Verify the phantom start/end pairing for tc-b: a start immediately
	// followed by an end, with no update event in between, and no
	// onUpdate invocation (the tool was never executed).
	var tcBTypes []agentevent.Type
	for _, ev := range events {
		if ev.Tool != nil && ev.Tool.ToolCallID == "tc-b" {
			tcBTypes = append(tcBTypes, ev.Type)
		}
	}
	if len(tcBTypes) != 2 || tcBTypes[0] != agentevent.ToolExecutionStart || tcBTypes[1] != agentevent.ToolExecutionEnd {
		t.Fatalf("expected exactly [start, end] for skipped tc-b, got %v", tcBTypes)
	}
}

func TestDispatchAdvisorRunnerNotCalledOnSkippedResult(t *testing.T) {
	e := agentevent.NewEmitter("r", agentevent.NopSink{})

	var advisorCalls []string
	steeringReturned := false
	d := NewDispatcher(Config{
		Registry:  newRegistry(t),
		Validator: NewSchemaValidator(),
		GetSteeringMessages: func() []agentmsg.Message {
			if steeringReturned {
				return nil
			}
			steeringReturned = true
			return []agentmsg.Message{agentmsg.NewUserText("stop")}
		},
		RunAdvisors: func(ctx context.Context, call *agentmsg.ToolCallBlock, result agentmsg.ToolResultMessage) {
			advisorCalls = append(advisorCalls, call.ID)
		},
	})

	assistant := assistantWithCalls(
		agentmsg.NewToolCallBlock("tc-a", "echo", []byte(`{"value":"a"}`)),
		agentmsg.NewToolCallBlock("tc-b", "echo", []byte(`{"value":"b"}`)),
	)
	d.Dispatch(context.Background(), e, assistant)

	if len(advisorCalls) != 1 || advisorCalls[0] != "tc-a" {
		t.Fatalf("advisors should only run for tc-a, got %v", advisorCalls)
	}
}
