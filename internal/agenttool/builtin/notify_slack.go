// Package builtin provides a handful of illustrative Tool implementations
// that demonstrate the agenttool.Tool boundary against real external
// services rather than in-memory fakes.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/haasonsaas/agentcore/internal/agenttool"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// NotifySlackTool posts a message to a Slack channel via the Web API. It
// holds one long-lived *slack.Client, unlike the Socket Mode adapter a
// channel integration would use to receive messages — this tool only ever
// sends.
type NotifySlackTool struct {
	client *slack.Client
}

// NewNotifySlackTool constructs the tool from a bot token (xoxb-...).
func NewNotifySlackTool(botToken string) *NotifySlackTool {
	return &NotifySlackTool{client: slack.New(botToken)}
}

type notifySlackArgs struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Name implements agenttool.Tool.
func (t *NotifySlackTool) Name() string { return "notify_slack" }

// Label implements agenttool.Tool.
func (t *NotifySlackTool) Label() string { return "Notify Slack" }

// Description implements agenttool.Tool.
func (t *NotifySlackTool) Description() string {
	return "Posts a text message to a Slack channel."
}

// Parameters implements agenttool.Tool.
func (t *NotifySlackTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"channel": {"type": "string", "description": "Channel ID or name, e.g. #alerts"},
			"text": {"type": "string", "description": "Message text"}
		},
		"required": ["channel", "text"]
	}`)
}

// Execute implements agenttool.Tool.
func (t *NotifySlackTool) Execute(ctx context.Context, toolCallID string, args json.RawMessage, onUpdate agenttool.UpdateFunc) (*agenttool.Result, error) {
	var a notifySlackArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("notify_slack: invalid arguments: %w", err)
	}
	if a.Channel == "" || a.Text == "" {
		return nil, fmt.Errorf("notify_slack: channel and text are required")
	}

	channelID, timestamp, err := t.client.PostMessageContext(ctx, a.Channel, slack.MsgOptionText(a.Text, false))
	if err != nil {
		return nil, fmt.Errorf("notify_slack: post message: %w", err)
	}

	return &agenttool.Result{
		Content: []agentmsg.Block{agentmsg.TextBlock(fmt.Sprintf("posted to %s at %s", channelID, timestamp))},
		Details: map[string]string{"channel": channelID, "ts": timestamp},
	}, nil
}
