// Package agentstream implements the streaming adapter interface: the
// contract by which the agent loop asks an external model to produce an
// assistant message incrementally, plus concrete provider adapters.
package agentstream

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// EventKind enumerates the partial-update event kinds an adapter emits
// while streaming one assistant turn.
type EventKind string

const (
	EventStart         EventKind = "start"
	EventTextStart     EventKind = "text_start"
	EventTextDelta     EventKind = "text_delta"
	EventTextEnd       EventKind = "text_end"
	EventThinkingStart EventKind = "thinking_start"
	EventThinkingDelta EventKind = "thinking_delta"
	EventThinkingEnd   EventKind = "thinking_end"
	EventToolCallStart EventKind = "toolcall_start"
	EventToolCallDelta EventKind = "toolcall_delta"
	EventToolCallEnd   EventKind = "toolcall_end"
	EventDone          EventKind = "done"
	EventError         EventKind = "error"
)

// StreamEvent is one increment from the adapter. Partial always carries a
// consistent snapshot of the evolving assistant message — the core treats
// it as authoritative and never reconstructs it independently. Delta
// carries the incremental text for *_delta kinds; Err carries the failure
// for EventError.
type StreamEvent struct {
	Kind    EventKind
	Partial agentmsg.AssistantMessage
	Delta   string
	Err     error
}

// APIKeyResolver resolves a possibly-rotating API key for a provider. It is
// invoked fresh on every LLM call; callers must not cache it across calls.
type APIKeyResolver func(ctx context.Context, provider string) (string, error)

// Options carries the per-call knobs an adapter needs: an abort context
// (ctx cancellation stands in for a separate signal type), an API key
// resolver, a reasoning level, and provider-specific extras.
type Options struct {
	APIKeyResolver APIKeyResolver
	StaticAPIKey   string
	Reasoning      string
	Extra          map[string]any
}

// ResolveAPIKey resolves the key to use for one call: APIKeyResolver if set
// and non-empty, else the static fallback.
func (o Options) ResolveAPIKey(ctx context.Context, provider string) (string, error) {
	if o.APIKeyResolver != nil {
		key, err := o.APIKeyResolver(ctx, provider)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return o.StaticAPIKey, nil
}

// LLMMessage is the projection of the log an adapter consumes — the output
// of a caller-supplied ConvertToLLM.
type LLMMessage struct {
	Role    string
	Content []agentmsg.Block
}

// Request is what the core passes the adapter for one LLM call.
type Request struct {
	Model    string
	System   string
	Messages []LLMMessage
	Tools    []ToolSpec
}

// ToolSpec is the wire-shape of one tool definition passed to the model —
// distinct from agenttool.Tool (the dispatcher's execution contract); an
// adapter only needs name/description/schema to advertise tools to the LLM.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  []byte // JSON Schema
}

// Adapter is the streaming adapter contract: stream(model, llmContext,
// options) -> streamHandle. Concrete adapters (Anthropic, OpenAI, Bedrock)
// implement this by consuming their provider's SSE/streaming wire format
// and translating it into the StreamEvent vocabulary above.
type Adapter interface {
	// Name identifies the adapter for logging/metrics/failover routing.
	Name() string
	// Stream starts one LLM call and returns a channel of StreamEvents
	// ending in exactly one EventDone or EventError. ctx cancellation is
	// the abort signal.
	Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error)
}
