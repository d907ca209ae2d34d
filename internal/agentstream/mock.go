package agentstream

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// MockAdapter replays a fixed script of AssistantMessage results, one per
// call to Stream, emitting a minimal start/text/done event sequence for
// each. It exists for deterministic tests of the agent loop, a hand-rolled
// fake rather than a generated mock.
type MockAdapter struct {
	Responses []agentmsg.AssistantMessage
	calls     int
}

// Name implements Adapter.
func (m *MockAdapter) Name() string { return "mock" }

// Stream implements Adapter, returning the next scripted response.
func (m *MockAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	idx := m.calls
	m.calls++

	var resp agentmsg.AssistantMessage
	if idx < len(m.Responses) {
		resp = m.Responses[idx]
	} else {
		resp = agentmsg.AssistantMessage{StopReason: agentmsg.StopOK}
	}

	ch := make(chan StreamEvent, 4)
	go func() {
		defer close(ch)
		select {
		case <-ctx.Done():
			ch <- StreamEvent{Kind: EventError, Err: ctx.Err()}
			return
		default:
		}

		partial := agentmsg.AssistantMessage{Model: resp.Model}
		ch <- StreamEvent{Kind: EventStart, Partial: partial}

		for _, block := range resp.Content {
			partial.Content = append(partial.Content, block)
			if block.Type == agentmsg.BlockText {
				ch <- StreamEvent{Kind: EventTextDelta, Partial: partial, Delta: block.Text}
			}
		}

		partial.StopReason = resp.StopReason
		partial.Usage = resp.Usage
		if resp.StopReason == agentmsg.StopError || resp.StopReason == agentmsg.StopAborted {
			ch <- StreamEvent{Kind: EventError, Partial: partial}
			return
		}
		ch <- StreamEvent{Kind: EventDone, Partial: partial}
	}()
	return ch, nil
}
