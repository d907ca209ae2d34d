package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/agentcore/internal/agentstream"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// DefaultExtractResult concatenates the text blocks of the last assistant
// message in messages, joined by "\n", skipping thinking blocks. Returns ""
// if there is no assistant message.
func DefaultExtractResult(messages []agentmsg.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		am, ok := messages[i].(agentmsg.AssistantMessage)
		if !ok {
			continue
		}
		var parts []string
		for _, b := range am.Content {
			if b.Type == agentmsg.BlockText && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// DefaultConvertToLLM projects the closed message variants onto
// agentstream.LLMMessage: user/assistant/toolResult messages pass through
// directly; an advisor message becomes a user message tagged
// "[Advisor: <name>] <content>"; extension messages are dropped.
func DefaultConvertToLLM(ctx context.Context, messages []agentmsg.Message) ([]agentstream.LLMMessage, error) {
	out := make([]agentstream.LLMMessage, 0, len(messages))
	for _, m := range messages {
		switch v := m.(type) {
		case agentmsg.UserMessage:
			out = append(out, agentstream.LLMMessage{Role: "user", Content: v.Content})
		case agentmsg.AssistantMessage:
			out = append(out, agentstream.LLMMessage{Role: "assistant", Content: v.Content})
		case agentmsg.ToolResultMessage:
			out = append(out, agentstream.LLMMessage{Role: "tool", Content: v.Content})
		case agentmsg.AdvisorMessage:
			tag := fmt.Sprintf("[Advisor: %s] %s", v.AdvisorName, v.Content)
			out = append(out, agentstream.LLMMessage{Role: "user", Content: []agentmsg.Block{agentmsg.TextBlock(tag)}})
		case agentmsg.ExtensionMessage:
			continue
		}
	}
	return out, nil
}
