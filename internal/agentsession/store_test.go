package agentsession

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

func TestEncodeDecodeMessages_RoundTrip(t *testing.T) {
	messages := []agentmsg.Message{
		agentmsg.UserMessage{
			Content:   []agentmsg.Block{agentmsg.TextBlock("hello")},
			CreatedAt: time.Unix(1700000000, 0).UTC(),
		},
		agentmsg.AssistantMessage{
			Content:    []agentmsg.Block{agentmsg.TextBlock("hi there")},
			StopReason: agentmsg.StopOK,
			Model:      "claude-3-5-sonnet",
		},
		agentmsg.ToolResultMessage{
			ToolCallID: "call-1",
			ToolName:   "lookup",
			Content:    []agentmsg.Block{agentmsg.TextBlock("42")},
		},
		agentmsg.AdvisorMessage{
			AdvisorName: "reviewer",
			Model:       "claude-3-5-haiku",
			Content:     "looks fine",
			CreatedAt:   time.Unix(1700000001, 0).UTC(),
		},
		agentmsg.ExtensionMessage{
			Tag:     "trace",
			Payload: map[string]any{"span_id": "abc"},
		},
	}

	envelopes, err := encodeMessages(messages)
	if err != nil {
		t.Fatalf("encodeMessages: %v", err)
	}
	if len(envelopes) != len(messages) {
		t.Fatalf("got %d envelopes, want %d", len(envelopes), len(messages))
	}

	// Round-trip through JSON as a store would.
	raw, err := json.Marshal(envelopes)
	if err != nil {
		t.Fatalf("marshal envelopes: %v", err)
	}
	var decodedEnvelopes []envelope
	if err := json.Unmarshal(raw, &decodedEnvelopes); err != nil {
		t.Fatalf("unmarshal envelopes: %v", err)
	}

	decoded, err := decodeMessages(decodedEnvelopes)
	if err != nil {
		t.Fatalf("decodeMessages: %v", err)
	}
	if len(decoded) != len(messages) {
		t.Fatalf("got %d messages, want %d", len(decoded), len(messages))
	}

	for i, m := range decoded {
		if m.Kind() != messages[i].Kind() {
			t.Errorf("message %d: kind = %s, want %s", i, m.Kind(), messages[i].Kind())
		}
	}

	am, ok := decoded[1].(agentmsg.AssistantMessage)
	if !ok {
		t.Fatalf("message 1: got %T, want AssistantMessage", decoded[1])
	}
	if am.Model != "claude-3-5-sonnet" || am.StopReason != agentmsg.StopOK {
		t.Errorf("assistant message round-tripped wrong: %+v", am)
	}
}

func TestDecodeOne_UnknownKind(t *testing.T) {
	_, err := decodeOne(envelope{Kind: agentmsg.Kind("bogus"), Payload: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
