package agentstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// maxEmptyStreamEvents bounds consecutive SSE events that produce no chunk
// before the stream is treated as malformed, guarding against flood/hang
// streams.
const maxEmptyStreamEvents = 300

// AnthropicAdapter streams assistant turns from Anthropic's Messages API.
type AnthropicAdapter struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// AnthropicConfig configures an AnthropicAdapter.
type AnthropicConfig struct {
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropicAdapter constructs an adapter. The API key is never read from
// config: it is resolved per call via Options.ResolveAPIKey.
func NewAnthropicAdapter(cfg AnthropicConfig) *AnthropicAdapter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicAdapter{
		client:       anthropic.NewClient(opts...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}
}

// Name implements Adapter.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// Stream implements Adapter: it resolves the API key for this call, builds
// the request with exponential-backoff retries on transient failures, and
// translates Anthropic's SSE events into the StreamEvent vocabulary.
func (a *AnthropicAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	key, err := opts.ResolveAPIKey(ctx, a.Name())
	if err != nil {
		return nil, fmt.Errorf("agentstream: resolve anthropic api key: %w", err)
	}
	if key == "" {
		return nil, errors.New("agentstream: no anthropic api key available")
	}
	callOpt := option.WithAPIKey(key)

	ch := make(chan StreamEvent, 8)
	go func() {
		defer close(ch)

		params := a.buildParams(req)

		var lastErr error
		for attempt := 0; attempt <= a.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					ch <- StreamEvent{Kind: EventError, Err: ctx.Err()}
					return
				case <-time.After(a.retryDelay * time.Duration(1<<uint(attempt-1))):
				}
			}

			stream := a.client.Messages.NewStreaming(ctx, params, callOpt)
			if done := a.processStream(ctx, stream, req.Model, ch); done {
				return
			}
			lastErr = stream.Err()
			if !isRetryableError(lastErr) {
				ch <- StreamEvent{Kind: EventError, Err: lastErr}
				return
			}
		}
		ch <- StreamEvent{Kind: EventError, Err: fmt.Errorf("agentstream: anthropic stream exhausted retries: %w", lastErr)}
	}()
	return ch, nil
}

func (a *AnthropicAdapter) buildParams(req Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case agentmsg.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case agentmsg.BlockToolCall:
				if b.ToolCall != nil {
					var input map[string]any
					_ = json.Unmarshal(b.ToolCall.Arguments, &input)
					blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolCall.ID, input, b.ToolCall.Name))
				}
			}
		}
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: 4096,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := a.convertTools(req.Tools)
		if err == nil {
			params.Tools = tools
		}
	}
	return params
}

func (a *AnthropicAdapter) convertTools(specs []ToolSpec) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, t := range specs {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("agentstream: invalid tool schema for %s: %w", t.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("agentstream: invalid tool schema for %s", t.Name)
		}
		toolParam.OfTool.Description = anthropic.String(t.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

// processStream consumes one SSE stream, emitting StreamEvents, and returns
// true once the stream has reached a terminal state (message_stop or a
// non-retryable error already reported on ch).
func (a *AnthropicAdapter) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], model string, ch chan<- StreamEvent) bool {
	partial := agentmsg.AssistantMessage{Model: model}
	ch <- StreamEvent{Kind: EventStart, Partial: partial}

	var inThinking bool
	var currentCall *agentmsg.ToolCallBlock
	var currentInput bytes.Buffer
	var emptyEvents int

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "content_block_start":
			start := event.AsContentBlockStart()
			switch start.ContentBlock.Type {
			case "thinking":
				inThinking = true
				ch <- StreamEvent{Kind: EventThinkingStart, Partial: partial}
				processed = true
			case "tool_use":
				toolUse := start.ContentBlock.AsToolUse()
				currentCall = &agentmsg.ToolCallBlock{ID: toolUse.ID, Name: toolUse.Name}
				currentInput.Reset()
				ch <- StreamEvent{Kind: EventToolCallStart, Partial: partial}
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					partial.Content = append(partial.Content, agentmsg.TextBlock(delta.Text))
					ch <- StreamEvent{Kind: EventTextDelta, Partial: partial, Delta: delta.Text}
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					ch <- StreamEvent{Kind: EventThinkingDelta, Partial: partial, Delta: delta.Thinking}
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentInput.WriteString(delta.PartialJSON)
					ch <- StreamEvent{Kind: EventToolCallDelta, Partial: partial, Delta: delta.PartialJSON}
					processed = true
				}
			}

		case "content_block_stop":
			if inThinking {
				inThinking = false
				ch <- StreamEvent{Kind: EventThinkingEnd, Partial: partial}
				processed = true
			} else if currentCall != nil {
				currentCall.Arguments = append([]byte(nil), currentInput.Bytes()...)
				block := agentmsg.NewToolCallBlock(currentCall.ID, currentCall.Name, currentCall.Arguments)
				partial.Content = append(partial.Content, block)
				ch <- StreamEvent{Kind: EventToolCallEnd, Partial: partial}
				currentCall = nil
				processed = true
			}

		case "message_start":
			ms := event.AsMessageStart()
			if ms.Message.Usage.InputTokens > 0 {
				partial.Usage.InputTokens = int(ms.Message.Usage.InputTokens)
			}
			processed = true

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				partial.Usage.OutputTokens = int(md.Usage.OutputTokens)
			}
			processed = true

		case "message_stop":
			partial.StopReason = agentmsg.StopOK
			for _, b := range partial.Content {
				if b.Type == agentmsg.BlockToolCall {
					partial.StopReason = agentmsg.StopToolUse
					break
				}
			}
			ch <- StreamEvent{Kind: EventDone, Partial: partial}
			return true

		case "error":
			partial.StopReason = agentmsg.StopError
			ch <- StreamEvent{Kind: EventError, Partial: partial, Err: errors.New("anthropic stream error event")}
			return true
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				ch <- StreamEvent{Kind: EventError, Err: fmt.Errorf("agentstream: anthropic stream malformed after %d empty events", emptyEvents)}
				return true
			}
		}

		select {
		case <-ctx.Done():
			ch <- StreamEvent{Kind: EventError, Err: ctx.Err()}
			return true
		default:
		}
	}

	return false
}

// isRetryableError reports whether err represents a transient failure worth
// retrying with backoff: rate limits, 5xx responses, timeouts, and
// connection resets.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, substr := range []string{
		"rate_limit", "429", "too many requests",
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
