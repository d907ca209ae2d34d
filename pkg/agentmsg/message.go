// Package agentmsg defines the tagged-union message model shared by the
// agent loop, the tool dispatcher, and callers that construct prompts or
// read back results.
package agentmsg

import (
	"encoding/json"
	"time"
)

// Kind discriminates the closed set of built-in message variants plus the
// open Extension arm.
type Kind string

const (
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolResult Kind = "tool_result"
	KindAdvisor    Kind = "advisor"
	KindExtension  Kind = "extension"
)

// Message is implemented by every variant in the log. The log is a closed
// union (User, Assistant, ToolResult, Advisor) plus one open extension arm;
// Kind() is the discriminator callers switch on.
type Message interface {
	Kind() Kind
}

// BlockType discriminates content blocks carried by user/assistant messages.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockImage    BlockType = "image"
	BlockThinking BlockType = "thinking"
	BlockToolCall BlockType = "tool_call"
)

// Block is a single content block. Exactly one of the typed fields is set,
// matching BlockType.
type Block struct {
	Type BlockType `json:"type"`

	// Text holds BlockText / BlockThinking content.
	Text string `json:"text,omitempty"`

	// ImageURL and ImageMIME hold BlockImage content.
	ImageURL  string `json:"image_url,omitempty"`
	ImageMIME string `json:"image_mime,omitempty"`

	// ToolCall holds BlockToolCall content.
	ToolCall *ToolCallBlock `json:"tool_call,omitempty"`
}

// TextBlock constructs a text content block.
func TextBlock(text string) Block { return Block{Type: BlockText, Text: text} }

// ThinkingBlock constructs a reasoning content block.
func ThinkingBlock(text string) Block { return Block{Type: BlockThinking, Text: text} }

// ImageBlock constructs an image content block.
func ImageBlock(url, mime string) Block {
	return Block{Type: BlockImage, ImageURL: url, ImageMIME: mime}
}

// ToolCallBlock describes one tool invocation requested by the assistant.
type ToolCallBlock struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewToolCallBlock constructs a tool-call content block.
func NewToolCallBlock(id, name string, args json.RawMessage) Block {
	return Block{Type: BlockToolCall, ToolCall: &ToolCallBlock{ID: id, Name: name, Arguments: args}}
}

// StopReason is why an assistant message stopped streaming.
type StopReason string

const (
	StopOK       StopReason = "stop"
	StopToolUse  StopReason = "tool_use"
	StopError    StopReason = "error"
	StopAborted  StopReason = "aborted"
	StopLength   StopReason = "length"
)

// Usage records token accounting for one assistant message.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UserMessage is free-form user content plus a timestamp.
type UserMessage struct {
	Content   []Block   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserMessage) Kind() Kind { return KindUser }

// NewUserText is a convenience constructor for a plain-text user message.
func NewUserText(text string) UserMessage {
	return UserMessage{Content: []Block{TextBlock(text)}, CreatedAt: time.Now()}
}

// AssistantMessage is an ordered sequence of content blocks produced by the
// model, along with its stop reason, model identifier, and usage.
type AssistantMessage struct {
	Content    []Block    `json:"content"`
	StopReason StopReason `json:"stop_reason"`
	Model      string     `json:"model"`
	Usage      Usage      `json:"usage"`
}

func (AssistantMessage) Kind() Kind { return KindAssistant }

// ToolCalls returns every ToolCallBlock in the message, in declaration order.
func (a AssistantMessage) ToolCalls() []*ToolCallBlock {
	var calls []*ToolCallBlock
	for i := range a.Content {
		if a.Content[i].Type == BlockToolCall && a.Content[i].ToolCall != nil {
			calls = append(calls, a.Content[i].ToolCall)
		}
	}
	return calls
}

// Text concatenates every text block's content, in order, joined by sep.
func (a AssistantMessage) Text(sep string) string {
	var out []string
	for _, b := range a.Content {
		if b.Type == BlockText {
			out = append(out, b.Text)
		}
	}
	return join(out, sep)
}

func join(parts []string, sep string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	total := len(parts) - 1
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, sep...)
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// ToolResultMessage references an assistant ToolCall by id and carries the
// tool's output (or a synthesized error, per the dispatcher's error rules).
type ToolResultMessage struct {
	ToolCallID string  `json:"tool_call_id"`
	ToolName   string  `json:"tool_name"`
	Content    []Block `json:"content"`
	Details    any     `json:"details,omitempty"`
	IsError    bool    `json:"is_error,omitempty"`
}

func (ToolResultMessage) Kind() Kind { return KindToolResult }

// Text concatenates the text blocks of the tool result's content.
func (t ToolResultMessage) Text(sep string) string {
	var out []string
	for _, b := range t.Content {
		if b.Type == BlockText {
			out = append(out, b.Text)
		}
	}
	return join(out, sep)
}

// AdvisorMessage records a sub-agent's final textual verdict.
type AdvisorMessage struct {
	AdvisorName string    `json:"advisor_name"`
	Model       string    `json:"model"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AdvisorMessage) Kind() Kind { return KindAdvisor }

// ExtensionMessage is the open extension arm. Callers may define additional
// tags; the loop treats the payload as opaque and relies on ConvertToLLM to
// project it.
type ExtensionMessage struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload,omitempty"`
}

func (ExtensionMessage) Kind() Kind { return KindExtension }

// LLMMessage is the projection of the log that a streaming adapter
// understands — the output of a caller-supplied ConvertToLLM function.
// Concrete adapters (internal/agentstream) define their own wire shapes;
// this is the minimal cross-adapter shape the core itself ever touches,
// used only for adapters that do not need provider-specific fields.
type LLMMessage struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}
