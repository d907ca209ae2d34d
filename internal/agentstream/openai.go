package agentstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// OpenAIAdapter streams assistant turns from OpenAI's chat completions API.
type OpenAIAdapter struct {
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIAdapter constructs an adapter. No API key is held here: it is
// resolved fresh per call via Options.ResolveAPIKey.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{maxRetries: 3, retryDelay: time.Second}
}

// Name implements Adapter.
func (a *OpenAIAdapter) Name() string { return "openai" }

// Stream implements Adapter.
func (a *OpenAIAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	key, err := opts.ResolveAPIKey(ctx, a.Name())
	if err != nil {
		return nil, fmt.Errorf("agentstream: resolve openai api key: %w", err)
	}
	if key == "" {
		return nil, errors.New("agentstream: no openai api key available")
	}
	client := openai.NewClient(key)

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: a.convertMessages(req),
		Stream:   true,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = a.convertTools(req.Tools)
	}

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.retryDelay * time.Duration(attempt)):
			}
		}
		stream, lastErr = client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableOpenAIError(lastErr) {
			return nil, fmt.Errorf("agentstream: non-retryable openai error: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("agentstream: openai max retries exceeded: %w", lastErr)
	}

	ch := make(chan StreamEvent, 8)
	go a.processStream(ctx, stream, req.Model, ch)
	return ch, nil
}

func (a *OpenAIAdapter) processStream(ctx context.Context, stream *openai.ChatCompletionStream, model string, ch chan<- StreamEvent) {
	defer close(ch)
	defer stream.Close()

	partial := agentmsg.AssistantMessage{Model: model}
	ch <- StreamEvent{Kind: EventStart, Partial: partial}

	type building struct {
		id, name string
		args     strings.Builder
	}
	toolCalls := make(map[int]*building)
	order := make([]int, 0, 4)

	flush := func() {
		for _, idx := range order {
			tc := toolCalls[idx]
			if tc == nil || tc.id == "" || tc.name == "" {
				continue
			}
			block := agentmsg.NewToolCallBlock(tc.id, tc.name, []byte(tc.args.String()))
			partial.Content = append(partial.Content, block)
			ch <- StreamEvent{Kind: EventToolCallEnd, Partial: partial}
		}
		toolCalls = make(map[int]*building)
		order = order[:0]
	}

	for {
		select {
		case <-ctx.Done():
			ch <- StreamEvent{Kind: EventError, Err: ctx.Err()}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				flush()
				partial.StopReason = agentmsg.StopOK
				ch <- StreamEvent{Kind: EventDone, Partial: partial}
				return
			}
			ch <- StreamEvent{Kind: EventError, Err: err}
			return
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			partial.Content = append(partial.Content, agentmsg.TextBlock(delta.Content))
			ch <- StreamEvent{Kind: EventTextDelta, Partial: partial, Delta: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			b, ok := toolCalls[idx]
			if !ok {
				b = &building{}
				toolCalls[idx] = b
				order = append(order, idx)
				ch <- StreamEvent{Kind: EventToolCallStart, Partial: partial}
			}
			if tc.ID != "" {
				b.id = tc.ID
			}
			if tc.Function.Name != "" {
				b.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				b.args.WriteString(tc.Function.Arguments)
				ch <- StreamEvent{Kind: EventToolCallDelta, Partial: partial, Delta: tc.Function.Arguments}
			}
		}

		if choice.FinishReason == "tool_calls" {
			flush()
			partial.StopReason = agentmsg.StopToolUse
		}
	}
}

func (a *OpenAIAdapter) convertMessages(req Request) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		oai := openai.ChatCompletionMessage{Role: m.Role}
		var toolCallBlocks []*agentmsg.ToolCallBlock
		for _, b := range m.Content {
			switch b.Type {
			case agentmsg.BlockText:
				oai.Content += b.Text
			case agentmsg.BlockToolCall:
				if b.ToolCall != nil {
					toolCallBlocks = append(toolCallBlocks, b.ToolCall)
				}
			}
		}
		if m.Role == "assistant" && len(toolCallBlocks) > 0 {
			oai.ToolCalls = make([]openai.ToolCall, len(toolCallBlocks))
			for i, tc := range toolCallBlocks {
				oai.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}
		result = append(result, oai)
	}
	return result
}

func (a *OpenAIAdapter) convertTools(specs []ToolSpec) []openai.Tool {
	result := make([]openai.Tool, len(specs))
	for i, t := range specs {
		var schema map[string]any
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		}
	}
	return result
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, substr := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
