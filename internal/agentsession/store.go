// Package agentsession persists an agentconfig.Context's message log across
// process restarts. It is demo/operator tooling, not a dependency of the
// core state machine: agentloop.Start/Continue take a *Context the caller
// already holds in memory, so nothing here is imported by agentloop,
// agentconfig, agentevent, agenttool, agentstream, agenterrors, agentobs,
// or pkg/agentmsg. A caller wires a Store in around the edges — load before
// Start, save after Continue returns.
package agentsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// Store persists and restores one session's Context by an opaque session
// ID. Implementations are expected to be safe for concurrent use by
// distinct session IDs; concurrent Save calls for the same ID are not
// required to be ordered against each other.
type Store interface {
	// Save creates the session if it does not exist, otherwise overwrites
	// its system prompt and message log.
	Save(ctx context.Context, sessionID string, sess *agentconfig.Context) error
	// Load returns the saved Context for sessionID, or ErrNotFound if no
	// session with that ID exists.
	Load(ctx context.Context, sessionID string) (*agentconfig.Context, error)
	// Delete removes a session. It is not an error to delete a session
	// that does not exist.
	Delete(ctx context.Context, sessionID string) error
	// Close releases the underlying connection.
	Close() error
}

// ErrNotFound is returned by Load when the session ID has no saved state.
var ErrNotFound = fmt.Errorf("agentsession: session not found")

// envelope is the on-disk encoding of one agentmsg.Message: its Kind
// discriminator alongside the concrete payload, since Message is an
// interface with no self-describing JSON shape of its own.
type envelope struct {
	Kind    agentmsg.Kind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// record is the full on-disk encoding of one Context.
type record struct {
	SystemPrompt string     `json:"system_prompt"`
	Messages     []envelope `json:"messages"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func encodeMessages(messages []agentmsg.Message) ([]envelope, error) {
	out := make([]envelope, 0, len(messages))
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("agentsession: marshal %s message: %w", m.Kind(), err)
		}
		out = append(out, envelope{Kind: m.Kind(), Payload: payload})
	}
	return out, nil
}

func decodeMessages(envelopes []envelope) ([]agentmsg.Message, error) {
	out := make([]agentmsg.Message, 0, len(envelopes))
	for _, e := range envelopes {
		msg, err := decodeOne(e)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func decodeOne(e envelope) (agentmsg.Message, error) {
	switch e.Kind {
	case agentmsg.KindUser:
		var m agentmsg.UserMessage
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentsession: unmarshal user message: %w", err)
		}
		return m, nil
	case agentmsg.KindAssistant:
		var m agentmsg.AssistantMessage
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentsession: unmarshal assistant message: %w", err)
		}
		return m, nil
	case agentmsg.KindToolResult:
		var m agentmsg.ToolResultMessage
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentsession: unmarshal tool result message: %w", err)
		}
		return m, nil
	case agentmsg.KindAdvisor:
		var m agentmsg.AdvisorMessage
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentsession: unmarshal advisor message: %w", err)
		}
		return m, nil
	case agentmsg.KindExtension:
		var m agentmsg.ExtensionMessage
		if err := json.Unmarshal(e.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentsession: unmarshal extension message: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("agentsession: unknown message kind %q", e.Kind)
	}
}
