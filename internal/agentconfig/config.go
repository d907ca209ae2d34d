// Package agentconfig defines the Context and Config shapes that
// Start/Continue take as input, plus an override-wins merge function.
package agentconfig

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/internal/agentstream"
	"github.com/haasonsaas/agentcore/internal/agenttool"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// Context is the caller-owned state of one run: a system prompt, the
// message log, and the tool set available to the assistant. Start/Continue
// take a *Context and append to its Messages in place for the duration of
// the run.
type Context struct {
	SystemPrompt string
	Messages     []agentmsg.Message
	Tools        []agenttool.Tool
}

// TriggerParams is the argument an advisor's Trigger and CreateContext
// receive: the log, the triggering tool call's name and arguments, and its
// result.
type TriggerParams struct {
	Messages   []agentmsg.Message
	ToolName   string
	ToolArgs   json.RawMessage
	ToolResult agentmsg.ToolResultMessage
}

// AdvisorContext is what CreateContext returns: the starting state for the
// nested agent run. Its Messages become the first pending batch of the
// child run, not an already-committed log.
type AdvisorContext struct {
	SystemPrompt string
	Messages     []agentmsg.Message
}

// AdvisorConfig configures one advisor sub-agent. Only Name, Trigger, and
// CreateContext are required; everything else either falls back to the
// parent run's corresponding Config field or to the documented default.
type AdvisorConfig struct {
	Name      string
	Model     string
	Reasoning string

	APIKey    string
	GetAPIKey func(ctx context.Context, provider string) (string, error)

	Tools    []agenttool.Tool
	Advisors []AdvisorConfig

	// Trigger decides whether this advisor fires for one tool result. A nil
	// Trigger never fires; absence is treated as "never triggers" rather
	// than an error.
	Trigger func(ctx context.Context, params TriggerParams) (bool, error)

	// CreateContext builds the child run's starting state. Required when
	// Trigger can return true; a nil CreateContext is an advisor_error.
	CreateContext func(ctx context.Context, params TriggerParams) (AdvisorContext, error)

	// ExtractResult projects the child run's new messages to a verdict
	// string. Defaults to concatenating the text blocks of the child's
	// last assistant message, joined by "\n", skipping thinking blocks.
	ExtractResult func(messages []agentmsg.Message) string

	// ConvertToLLM projects the child run's log for its own LLM calls.
	// Defaults to passing user/assistant/toolResult messages through and
	// projecting an advisor message as a user message tagged
	// "[Advisor: <name>] <content>"; unknown (extension) variants are
	// dropped.
	ConvertToLLM func(ctx context.Context, messages []agentmsg.Message) ([]agentstream.LLMMessage, error)

	// Adapter overrides the parent run's streaming adapter for this
	// advisor's own LLM calls. Defaults to the parent's Config.Adapter.
	Adapter agentstream.Adapter
}

// Config carries one run's options plus the ambient additions a real
// deployment needs (logging, iteration/wall-time bounds, tool policy
// collaborators, extra event sinks).
type Config struct {
	// Model is the model handle passed to the streaming adapter.
	Model string

	// ConvertToLLM projects the log into LLM-compatible messages. Required.
	ConvertToLLM func(ctx context.Context, messages []agentmsg.Message) ([]agentstream.LLMMessage, error)

	// TransformContext is an optional log-level projection (e.g. pruning)
	// applied before ConvertToLLM.
	TransformContext func(ctx context.Context, messages []agentmsg.Message) ([]agentmsg.Message, error)

	// GetAPIKey resolves a possibly-rotating API key per LLM call.
	GetAPIKey func(ctx context.Context, provider string) (string, error)
	// APIKey is the static fallback when GetAPIKey is absent or returns "".
	APIKey string

	// GetSteeringMessages is polled before the first turn (Start only) and
	// after each tool result, to inject mid-run user messages.
	GetSteeringMessages func() []agentmsg.Message
	// GetFollowUpMessages is polled when the run would otherwise stop.
	GetFollowUpMessages func() []agentmsg.Message

	Advisors  []AdvisorConfig
	Reasoning string

	// Adapter is the streaming adapter the loop calls for each LLM turn.
	Adapter agentstream.Adapter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// MaxIterations bounds the number of turn_start cycles in one run.
	MaxIterations int
	// MaxWallTime, if positive, bounds the run's total wall-clock time via
	// a context.WithTimeout.
	MaxWallTime time.Duration

	// Validator, ApprovalChecker, and ResultGuard wire the dispatcher's
	// schema validation, approval gating, and result redaction/truncation.
	Validator       *agenttool.SchemaValidator
	ApprovalChecker *agenttool.ApprovalChecker
	ResultGuard     agenttool.ResultGuard

	// EventSinks fan additional observers (metrics, tracing, persistence)
	// in alongside the Stream's own sealing sink.
	EventSinks []agentevent.Sink
}

// DefaultConfig returns the zero-value baseline a caller's options are
// merged onto: MaxIterations=5 and Logger=slog.Default().
func DefaultConfig() Config {
	return Config{
		MaxIterations: 5,
		Logger:        slog.Default(),
	}
}

// MergeConfig layers override onto base, override-wins per field.
// Zero-valued fields in override do not clobber a non-zero base value.
func MergeConfig(base, override Config) Config {
	out := base

	if override.Model != "" {
		out.Model = override.Model
	}
	if override.ConvertToLLM != nil {
		out.ConvertToLLM = override.ConvertToLLM
	}
	if override.TransformContext != nil {
		out.TransformContext = override.TransformContext
	}
	if override.GetAPIKey != nil {
		out.GetAPIKey = override.GetAPIKey
	}
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.GetSteeringMessages != nil {
		out.GetSteeringMessages = override.GetSteeringMessages
	}
	if override.GetFollowUpMessages != nil {
		out.GetFollowUpMessages = override.GetFollowUpMessages
	}
	if len(override.Advisors) > 0 {
		out.Advisors = override.Advisors
	}
	if override.Reasoning != "" {
		out.Reasoning = override.Reasoning
	}
	if override.Adapter != nil {
		out.Adapter = override.Adapter
	}
	if override.Logger != nil {
		out.Logger = override.Logger
	}
	if override.MaxIterations > 0 {
		out.MaxIterations = override.MaxIterations
	}
	if override.MaxWallTime > 0 {
		out.MaxWallTime = override.MaxWallTime
	}
	if override.Validator != nil {
		out.Validator = override.Validator
	}
	if override.ApprovalChecker != nil {
		out.ApprovalChecker = override.ApprovalChecker
	}
	if override.ResultGuard.Active() {
		out.ResultGuard = override.ResultGuard
	}
	if len(override.EventSinks) > 0 {
		out.EventSinks = override.EventSinks
	}

	return out
}
