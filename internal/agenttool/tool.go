// Package agenttool implements the tool dispatcher: argument validation,
// cancellation-aware invocation with progress callbacks, and synthesis of
// tool-result messages including error wrapping.
package agenttool

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// UpdateFunc is the progress callback a Tool may invoke any number of times
// during Execute; the dispatcher emits a tool_execution_update event for
// each call.
type UpdateFunc func(partial any)

// Result is what a Tool returns on success: a content block list plus an
// opaque details payload.
type Result struct {
	Content []agentmsg.Block
	Details any
}

// Tool is the uniform interface the dispatcher invokes tool implementations
// through: name, label, description, a parameter schema, and an execute
// method taking the call ID, raw arguments, and a progress callback.
type Tool interface {
	Name() string
	Label() string
	Description() string
	// Parameters returns the tool's JSON Schema for its arguments.
	Parameters() json.RawMessage
	// Execute runs the tool. It may call onUpdate any number of times and
	// should observe ctx cancellation cooperatively. A returned error is
	// caught by the dispatcher and never re-thrown; it becomes an error
	// tool-result instead.
	Execute(ctx context.Context, toolCallID string, args json.RawMessage, onUpdate UpdateFunc) (*Result, error)
}
