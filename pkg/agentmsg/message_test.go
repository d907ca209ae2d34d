package agentmsg

import "testing"

func TestAssistantMessageToolCalls(t *testing.T) {
	msg := AssistantMessage{
		Content: []Block{
			TextBlock("checking..."),
			NewToolCallBlock("tc-1", "echo", []byte(`{"value":"x"}`)),
			NewToolCallBlock("tc-2", "echo", []byte(`{"value":"y"}`)),
		},
		StopReason: StopToolUse,
	}

	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "tc-1" || calls[1].ID != "tc-2" {
		t.Fatalf("tool calls out of order: %+v", calls)
	}
}

func TestAssistantMessageTextSkipsThinkingAndToolCalls(t *testing.T) {
	msg := AssistantMessage{
		Content: []Block{
			ThinkingBlock("internal reasoning"),
			TextBlock("hello"),
			NewToolCallBlock("tc-1", "echo", nil),
			TextBlock("world"),
		},
	}

	got := msg.Text("\n")
	want := "hello\nworld"
	if got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestToolResultMessageText(t *testing.T) {
	r := ToolResultMessage{
		ToolCallID: "tc-1",
		ToolName:   "echo",
		Content:    []Block{TextBlock("echoed: x")},
	}
	if got := r.Text("\n"); got != "echoed: x" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestKindDiscriminators(t *testing.T) {
	cases := []struct {
		msg  Message
		want Kind
	}{
		{NewUserText("hi"), KindUser},
		{AssistantMessage{}, KindAssistant},
		{ToolResultMessage{}, KindToolResult},
		{AdvisorMessage{}, KindAdvisor},
		{ExtensionMessage{Tag: "custom"}, KindExtension},
	}
	for _, c := range cases {
		if got := c.msg.Kind(); got != c.want {
			t.Errorf("Kind() = %q, want %q", got, c.want)
		}
	}
}
