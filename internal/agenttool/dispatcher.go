package agenttool

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// AdvisorRunner fires the advisors configured for one tool result. It is
// owned by the agent loop, not this package — the dispatcher only invokes
// it as a callback after appending each tool result, to avoid agenttool
// depending on agentloop.
type AdvisorRunner func(ctx context.Context, call *agentmsg.ToolCallBlock, result agentmsg.ToolResultMessage)

// Config wires the optional collaborators of the dispatcher. Only Registry
// is required; the rest implement supplemented features documented in
// SPEC_FULL.md.
type Config struct {
	Registry            *Registry
	Validator           *SchemaValidator
	ApprovalChecker     *ApprovalChecker
	ResultGuard         ResultGuard
	GetSteeringMessages func() []agentmsg.Message
	RunAdvisors         AdvisorRunner
}

// Dispatcher runs every tool call in an assistant message, in declaration
// order: it looks up, validates, invokes (or denies) the tool, appends the
// synthesized tool-result message, fires advisors, and polls for steering
// interrupts.
type Dispatcher struct {
	cfg Config
}

// NewDispatcher constructs a Dispatcher over the given Config.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Dispatch runs the dispatcher over every tool call in assistant, emitting
// events through emitter. It returns the ordered tool-result messages and,
// if a steering interrupt was observed, the steering messages that caused
// the remaining calls to be skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, emitter *agentevent.Emitter, assistant agentmsg.AssistantMessage) (results []agentmsg.ToolResultMessage, steering []agentmsg.Message) {
	calls := assistant.ToolCalls()

	for i, call := range calls {
		result := d.executeOne(ctx, emitter, call)
		result = d.cfg.ResultGuard.Apply(call.Name, result)

		emitter.ToolExecutionEnd(call.ID, call.Name, &result, result.IsError)
		emitter.MessageStart(result)
		emitter.MessageEnd(result)
		results = append(results, result)

		if d.cfg.RunAdvisors != nil {
			d.cfg.RunAdvisors(ctx, call, result)
		}

		if d.cfg.GetSteeringMessages != nil {
			if steer := d.cfg.GetSteeringMessages(); len(steer) > 0 {
				skipped := d.skipRemaining(emitter, calls[i+1:])
				results = append(results, skipped...)
				return results, steer
			}
		}
	}

	return results, nil
}

// executeOne looks up, validates, checks approval, and invokes a single
// tool call. It always emits tool_execution_start before returning (the
// caller emits tool_execution_end once the guard has run).
func (d *Dispatcher) executeOne(ctx context.Context, emitter *agentevent.Emitter, call *agentmsg.ToolCallBlock) agentmsg.ToolResultMessage {
	emitter.ToolExecutionStart(call.ID, call.Name, call.Arguments)

	tool, ok := d.cfg.Registry.Lookup(call.Name)
	if !ok {
		return errorResult(call, "Tool "+call.Name+" not found")
	}

	if d.cfg.Validator != nil {
		if err := d.cfg.Validator.Validate(call.Name, tool.Parameters(), call.Arguments); err != nil {
			return errorResult(call, err.Error())
		}
	}

	if d.cfg.ApprovalChecker != nil {
		if decision, reason := d.cfg.ApprovalChecker.Check(call.Name); decision == ApprovalDenied {
			return errorResult(call, reason)
		}
	}

	onUpdate := func(partial any) {
		emitter.ToolExecutionUpdate(call.ID, call.Name, partial)
	}

	res, err := tool.Execute(ctx, call.ID, call.Arguments, onUpdate)
	if err != nil {
		return errorResult(call, err.Error())
	}

	return agentmsg.ToolResultMessage{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    res.Content,
		Details:    res.Details,
		IsError:    false,
	}
}

// skipRemaining synthesizes the "phantom execution" events and tool-result
// messages for calls skipped by a steering interrupt: tool_execution_start
// followed immediately by tool_execution_end, without invoking the tool.
// Advisors never run on these results.
func (d *Dispatcher) skipRemaining(emitter *agentevent.Emitter, calls []*agentmsg.ToolCallBlock) []agentmsg.ToolResultMessage {
	var out []agentmsg.ToolResultMessage
	for _, call := range calls {
		emitter.ToolExecutionStart(call.ID, call.Name, call.Arguments)
		result := errorResult(call, "Skipped due to queued user message.")
		emitter.ToolExecutionEnd(call.ID, call.Name, &result, true)
		emitter.MessageStart(result)
		emitter.MessageEnd(result)
		out = append(out, result)
	}
	return out
}

func errorResult(call *agentmsg.ToolCallBlock, message string) agentmsg.ToolResultMessage {
	return agentmsg.ToolResultMessage{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    []agentmsg.Block{agentmsg.TextBlock(message)},
		IsError:    true,
	}
}
