// Package agentevent implements the event stream: a single-producer,
// single-consumer sequence of ordered events with a distinguished terminal
// value, and the Emitter that stamps events with a monotonic sequence number
// before handing them to a Sink.
package agentevent

import (
	"sync/atomic"
	"time"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// Type enumerates the event variants a run can emit.
type Type string

const (
	AgentStart          Type = "agent_start"
	AgentEnd            Type = "agent_end"
	TurnStart           Type = "turn_start"
	TurnEnd             Type = "turn_end"
	MessageStart        Type = "message_start"
	MessageUpdate       Type = "message_update"
	MessageEnd          Type = "message_end"
	ToolExecutionStart  Type = "tool_execution_start"
	ToolExecutionUpdate Type = "tool_execution_update"
	ToolExecutionEnd    Type = "tool_execution_end"
	AdvisorStart        Type = "advisor_start"
	AdvisorEvent        Type = "advisor_event"
	AdvisorEnd          Type = "advisor_end"
	AdvisorError        Type = "advisor_error"
)

// AssistantStreamEvent is the originating adapter event forwarded alongside
// a MessageUpdate for an in-progress assistant message.
type AssistantStreamEvent struct {
	Kind  string // text_delta, thinking_delta, toolcall_delta, ...
	Delta string
}

// ToolExecutionPayload carries the fields of tool_execution_* events.
type ToolExecutionPayload struct {
	ToolCallID    string
	ToolName      string
	Args          []byte
	PartialResult any
	Result        *agentmsg.ToolResultMessage
	IsError       bool
}

// AdvisorPayload carries the fields of advisor_* events.
type AdvisorPayload struct {
	AdvisorName string
	ToolName    string
	Content     string
	Err         error
	Child       *Event // set only for advisor_event, the wrapped child event
}

// Event is one entry on the stream. Exactly the fields relevant to Type are
// populated; the rest are zero.
type Event struct {
	Type     Type
	Sequence uint64
	Time     time.Time

	RunID     string
	TurnIndex int

	// Message carries the message payload for message_*/turn_end events.
	Message agentmsg.Message
	// Stream carries the originating adapter event for message_update.
	Stream *AssistantStreamEvent
	// ToolResults carries the tool-result list for turn_end.
	ToolResults []agentmsg.ToolResultMessage
	// NewMessages carries the accumulated new-message list for agent_end.
	NewMessages []agentmsg.Message

	Tool    *ToolExecutionPayload
	Advisor *AdvisorPayload
}

// IsTerminal reports whether an event seals the stream: for the agent loop
// this is exactly the agent_end event.
func IsTerminal(e Event) bool { return e.Type == AgentEnd }

// Emitter stamps events with a monotonic sequence number and a run/turn
// context before dispatching them to a Sink.
type Emitter struct {
	runID    string
	sequence uint64

	turnIndex int

	sink Sink
}

// NewEmitter creates an Emitter for one run. A nil sink is replaced with a
// NopSink.
func NewEmitter(runID string, sink Sink) *Emitter {
	if sink == nil {
		sink = NopSink{}
	}
	return &Emitter{runID: runID, sink: sink}
}

// SetTurn updates the turn index stamped onto subsequent events.
func (e *Emitter) SetTurn(turnIndex int) { e.turnIndex = turnIndex }

func (e *Emitter) nextSeq() uint64 { return atomic.AddUint64(&e.sequence, 1) }

func (e *Emitter) base(t Type) Event {
	return Event{
		Type:      t,
		Sequence:  e.nextSeq(),
		Time:      time.Now(),
		RunID:     e.runID,
		TurnIndex: e.turnIndex,
	}
}

func (e *Emitter) emit(ev Event) Event {
	e.sink.Emit(ev)
	return ev
}

// AgentStart emits the opening event of a run.
func (e *Emitter) AgentStart() Event { return e.emit(e.base(AgentStart)) }

// AgentEnd emits the terminal event with the accumulated new messages.
func (e *Emitter) AgentEnd(newMessages []agentmsg.Message) Event {
	ev := e.base(AgentEnd)
	ev.NewMessages = newMessages
	return e.emit(ev)
}

// TurnStart emits the start of one turn.
func (e *Emitter) TurnStart() Event { return e.emit(e.base(TurnStart)) }

// TurnEnd emits the end of one turn with its assistant message and tool
// results.
func (e *Emitter) TurnEnd(assistant agentmsg.Message, results []agentmsg.ToolResultMessage) Event {
	ev := e.base(TurnEnd)
	ev.Message = assistant
	ev.ToolResults = results
	return e.emit(ev)
}

// MessageStart emits the start of a new log entry.
func (e *Emitter) MessageStart(msg agentmsg.Message) Event {
	ev := e.base(MessageStart)
	ev.Message = msg
	return e.emit(ev)
}

// MessageUpdate emits an incremental update to the in-progress assistant
// message, carrying the originating adapter event and a fresh snapshot.
func (e *Emitter) MessageUpdate(partial agentmsg.Message, stream *AssistantStreamEvent) Event {
	ev := e.base(MessageUpdate)
	ev.Message = partial
	ev.Stream = stream
	return e.emit(ev)
}

// MessageEnd emits the end of a log entry; its Message payload equals the
// message finally persisted in the log.
func (e *Emitter) MessageEnd(msg agentmsg.Message) Event {
	ev := e.base(MessageEnd)
	ev.Message = msg
	return e.emit(ev)
}

// ToolExecutionStart emits the start of a tool call's lifecycle.
func (e *Emitter) ToolExecutionStart(callID, name string, args []byte) Event {
	ev := e.base(ToolExecutionStart)
	ev.Tool = &ToolExecutionPayload{ToolCallID: callID, ToolName: name, Args: args}
	return e.emit(ev)
}

// ToolExecutionUpdate emits a progress update from a tool's onUpdate callback.
func (e *Emitter) ToolExecutionUpdate(callID, name string, partial any) Event {
	ev := e.base(ToolExecutionUpdate)
	ev.Tool = &ToolExecutionPayload{ToolCallID: callID, ToolName: name, PartialResult: partial}
	return e.emit(ev)
}

// ToolExecutionEnd emits the end of a tool call's lifecycle, including the
// "phantom execution" case for calls skipped by a steering interrupt (the
// caller passes isError=true with no underlying Tool.Execute invocation).
func (e *Emitter) ToolExecutionEnd(callID, name string, result *agentmsg.ToolResultMessage, isError bool) Event {
	ev := e.base(ToolExecutionEnd)
	ev.Tool = &ToolExecutionPayload{ToolCallID: callID, ToolName: name, Result: result, IsError: isError}
	return e.emit(ev)
}

// AdvisorStarted emits advisor_start.
func (e *Emitter) AdvisorStarted(advisorName, toolName string) Event {
	ev := e.base(AdvisorStart)
	ev.Advisor = &AdvisorPayload{AdvisorName: advisorName, ToolName: toolName}
	return e.emit(ev)
}

// AdvisorForwarded wraps a child run's event as advisor_event.
func (e *Emitter) AdvisorForwarded(advisorName string, child Event) Event {
	ev := e.base(AdvisorEvent)
	ev.Advisor = &AdvisorPayload{AdvisorName: advisorName, Child: &child}
	return e.emit(ev)
}

// AdvisorEnded emits advisor_end with the extracted content.
func (e *Emitter) AdvisorEnded(advisorName, content string) Event {
	ev := e.base(AdvisorEnd)
	ev.Advisor = &AdvisorPayload{AdvisorName: advisorName, Content: content}
	return e.emit(ev)
}

// AdvisorFailed emits advisor_error; the advisor is skipped, the parent run
// is unaffected.
func (e *Emitter) AdvisorFailed(advisorName string, err error) Event {
	ev := e.base(AdvisorError)
	ev.Advisor = &AdvisorPayload{AdvisorName: advisorName, Err: err}
	return e.emit(ev)
}
