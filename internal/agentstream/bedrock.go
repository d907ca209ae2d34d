package agentstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// BedrockAdapter streams assistant turns through AWS Bedrock's Converse
// API. Image-attachment content has no home in this core's Block model
// (no Attachment type) and is not supported.
type BedrockAdapter struct {
	client       *bedrockruntime.Client
	defaultModel string
	maxRetries   int
	retryDelay   time.Duration
}

// BedrockConfig configures a BedrockAdapter.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
	MaxRetries      int
	RetryDelay      time.Duration
}

// NewBedrockAdapter constructs an adapter using the AWS SDK's credential
// chain (explicit static credentials if given, else environment/IAM role).
func NewBedrockAdapter(ctx context.Context, cfg BedrockConfig) (*BedrockAdapter, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("agentstream: load aws config: %w", err)
	}

	return &BedrockAdapter{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}, nil
}

// Name implements Adapter.
func (a *BedrockAdapter) Name() string { return "bedrock" }

// Stream implements Adapter. Bedrock authenticates via the AWS credential
// chain rather than a resolved API key, so opts.ResolveAPIKey is not
// consulted here — the ambient AWS credentials are fixed at construction.
func (a *BedrockAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	if a.client == nil {
		return nil, errors.New("agentstream: bedrock client not initialized")
	}

	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	messages := a.convertMessages(req.Messages)
	converseReq := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if req.System != "" {
		converseReq.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if len(req.Tools) > 0 {
		converseReq.ToolConfig = a.convertTools(req.Tools)
	}

	var stream *bedrockruntime.ConverseStreamOutput
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.retryDelay * time.Duration(attempt)):
			}
		}
		stream, lastErr = a.client.ConverseStream(ctx, converseReq)
		if lastErr == nil {
			break
		}
		if !isRetryableBedrockError(lastErr) {
			return nil, fmt.Errorf("agentstream: non-retryable bedrock error: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("agentstream: bedrock max retries exceeded: %w", lastErr)
	}

	ch := make(chan StreamEvent, 8)
	go a.processStream(ctx, stream, model, ch)
	return ch, nil
}

func (a *BedrockAdapter) processStream(ctx context.Context, stream *bedrockruntime.ConverseStreamOutput, model string, ch chan<- StreamEvent) {
	defer close(ch)

	eventStream := stream.GetStream()
	defer eventStream.Close()

	partial := agentmsg.AssistantMessage{Model: model}
	ch <- StreamEvent{Kind: EventStart, Partial: partial}

	var currentCall *agentmsg.ToolCallBlock
	var inputBuilder strings.Builder

	eventChan := eventStream.Events()
	for {
		select {
		case <-ctx.Done():
			ch <- StreamEvent{Kind: EventError, Err: ctx.Err()}
			return
		case event, ok := <-eventChan:
			if !ok {
				if currentCall != nil {
					currentCall.Arguments = json.RawMessage(inputBuilder.String())
					partial.Content = append(partial.Content, agentmsg.NewToolCallBlock(currentCall.ID, currentCall.Name, currentCall.Arguments))
					ch <- StreamEvent{Kind: EventToolCallEnd, Partial: partial}
				}
				if err := eventStream.Err(); err != nil {
					ch <- StreamEvent{Kind: EventError, Err: err}
					return
				}
				partial.StopReason = agentmsg.StopOK
				ch <- StreamEvent{Kind: EventDone, Partial: partial}
				return
			}

			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					currentCall = &agentmsg.ToolCallBlock{
						ID:   aws.ToString(toolUse.Value.ToolUseId),
						Name: aws.ToString(toolUse.Value.Name),
					}
					inputBuilder.Reset()
					ch <- StreamEvent{Kind: EventToolCallStart, Partial: partial}
				}

			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch delta := ev.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if delta.Value != "" {
						partial.Content = append(partial.Content, agentmsg.TextBlock(delta.Value))
						ch <- StreamEvent{Kind: EventTextDelta, Partial: partial, Delta: delta.Value}
					}
				case *types.ContentBlockDeltaMemberToolUse:
					if delta.Value.Input != nil {
						inputBuilder.WriteString(*delta.Value.Input)
						ch <- StreamEvent{Kind: EventToolCallDelta, Partial: partial, Delta: *delta.Value.Input}
					}
				}

			case *types.ConverseStreamOutputMemberContentBlockStop:
				if currentCall != nil {
					currentCall.Arguments = json.RawMessage(inputBuilder.String())
					partial.Content = append(partial.Content, agentmsg.NewToolCallBlock(currentCall.ID, currentCall.Name, currentCall.Arguments))
					ch <- StreamEvent{Kind: EventToolCallEnd, Partial: partial}
					currentCall = nil
					inputBuilder.Reset()
				}

			case *types.ConverseStreamOutputMemberMessageStop:
				partial.StopReason = agentmsg.StopOK
				for _, b := range partial.Content {
					if b.Type == agentmsg.BlockToolCall {
						partial.StopReason = agentmsg.StopToolUse
						break
					}
				}
				ch <- StreamEvent{Kind: EventDone, Partial: partial}
				return

			case *types.ConverseStreamOutputMemberMetadata:
				// Token usage metadata; not surfaced as a distinct event.
			}
		}
	}
}

func (a *BedrockAdapter) convertMessages(messages []LLMMessage) []types.Message {
	result := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		var content []types.ContentBlock
		for _, b := range m.Content {
			switch b.Type {
			case agentmsg.BlockText:
				content = append(content, &types.ContentBlockMemberText{Value: b.Text})
			case agentmsg.BlockToolCall:
				if b.ToolCall != nil {
					var inputDoc any
					if err := json.Unmarshal(b.ToolCall.Arguments, &inputDoc); err != nil {
						inputDoc = map[string]any{}
					}
					content = append(content, &types.ContentBlockMemberToolUse{
						Value: types.ToolUseBlock{
							ToolUseId: aws.String(b.ToolCall.ID),
							Name:      aws.String(b.ToolCall.Name),
							Input:     document.NewLazyDocument(inputDoc),
						},
					})
				}
			}
		}
		if len(content) == 0 {
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}
	return result
}

func (a *BedrockAdapter) convertTools(specs []ToolSpec) *types.ToolConfiguration {
	tools := make([]types.Tool, 0, len(specs))
	for _, t := range specs {
		var schemaDoc any
		if err := json.Unmarshal(t.Parameters, &schemaDoc); err != nil {
			schemaDoc = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schemaDoc)},
			},
		})
	}
	return &types.ToolConfiguration{Tools: tools}
}

func isRetryableBedrockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"throttlingexception", "toomanyrequestsexception", "serviceunavailableexception",
		"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
