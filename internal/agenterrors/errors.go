// Package agenterrors implements the error taxonomy of the agent loop:
// sentinel errors for the one synchronous-exception case (continue-entry
// precondition violations) and a structured ToolError for dispatcher-level
// failures that become first-class tool-result messages rather than
// propagating.
package agenterrors

import (
	"errors"
	"fmt"
)

// Sentinel errors returned synchronously to the caller, never surfaced as
// events. The only such case is a misused "continue" entry.
var (
	// ErrContinueFromAssistant is returned by Continue when the last logged
	// message is an assistant message.
	ErrContinueFromAssistant = errors.New(`cannot continue from message role: assistant`)

	// ErrContinueEmptyContext is returned by Continue when the log is empty.
	ErrContinueEmptyContext = errors.New(`cannot continue: no messages in context`)

	// ErrNoConvertToLLM is returned when Config.ConvertToLLM is nil; it is
	// a required option.
	ErrNoConvertToLLM = errors.New("agentcore: ConvertToLLM is required")
)

// ToolErrorKind classifies why a tool call produced a synthetic error
// result.
type ToolErrorKind string

const (
	ToolNotFound       ToolErrorKind = "tool_not_found"
	ToolArgsInvalid    ToolErrorKind = "tool_args_invalid"
	ToolExecuteFailed  ToolErrorKind = "tool_execute_failed"
	ToolDenied         ToolErrorKind = "tool_denied"
	ToolSkippedByQueue ToolErrorKind = "tool_skipped_by_queue"
)

// ToolError is the structured error behind every synthetic tool-result the
// dispatcher constructs. It is never returned to the agent loop's caller —
// the dispatcher always converts it into an agentmsg.ToolResultMessage with
// IsError=true; errors are never re-thrown, they become tool results.
type ToolError struct {
	Kind       ToolErrorKind
	ToolName   string
	ToolCallID string
	Err        error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.ToolName, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.ToolName)
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsRetryable reports whether a retry of the same tool call might succeed.
// Only execution failures are considered retryable; a missing tool, a
// schema-invalid call, or a policy denial will not start succeeding by
// simply retrying.
func (e *ToolError) IsRetryable() bool {
	return e.Kind == ToolExecuteFailed
}

// NewToolNotFound constructs the "Tool <name> not found" error.
func NewToolNotFound(name, callID string) *ToolError {
	return &ToolError{
		Kind:       ToolNotFound,
		ToolName:   name,
		ToolCallID: callID,
		Err:        fmt.Errorf("Tool %s not found", name),
	}
}

// NewToolArgsInvalid constructs a schema-validation failure error, wrapping
// the validator's own message.
func NewToolArgsInvalid(name, callID string, validationErr error) *ToolError {
	return &ToolError{Kind: ToolArgsInvalid, ToolName: name, ToolCallID: callID, Err: validationErr}
}

// NewToolExecuteFailed constructs the error for a thrown/rejected tool
// execution.
func NewToolExecuteFailed(name, callID string, execErr error) *ToolError {
	return &ToolError{Kind: ToolExecuteFailed, ToolName: name, ToolCallID: callID, Err: execErr}
}

// NewToolDenied constructs a policy/approval denial error.
func NewToolDenied(name, callID string, reason string) *ToolError {
	return &ToolError{Kind: ToolDenied, ToolName: name, ToolCallID: callID, Err: errors.New(reason)}
}

// SkippedByQueueMessage is the fixed body used for tool calls skipped
// because a steering interrupt was observed mid-dispatch.
const SkippedByQueueMessage = "Skipped due to queued user message."

// NewToolSkippedByQueue constructs the "phantom execution" error for a tool
// call skipped after a steering interrupt: the start/end event pair is
// still emitted without invoking the tool.
func NewToolSkippedByQueue(name, callID string) *ToolError {
	return &ToolError{Kind: ToolSkippedByQueue, ToolName: name, ToolCallID: callID, Err: errors.New(SkippedByQueueMessage)}
}
