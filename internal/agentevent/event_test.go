package agentevent

import (
	"testing"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

func TestEmitterSequenceIsMonotonic(t *testing.T) {
	var got []Event
	e := NewEmitter("run-1", NewCallbackSink(func(ev Event) { got = append(got, ev) }))

	e.AgentStart()
	e.TurnStart()
	e.AgentEnd(nil)

	for i := 1; i < len(got); i++ {
		if got[i].Sequence <= got[i-1].Sequence {
			t.Fatalf("sequence not monotonic at %d: %+v", i, got)
		}
	}
}

func TestIsTerminalOnlyAgentEnd(t *testing.T) {
	if IsTerminal(Event{Type: TurnEnd}) {
		t.Fatal("turn_end must not be terminal")
	}
	if !IsTerminal(Event{Type: AgentEnd}) {
		t.Fatal("agent_end must be terminal")
	}
}

func TestStreamSealsAndYieldsResult(t *testing.T) {
	stream := NewStream(8)
	e := NewEmitter("run-1", stream.SealingSink())

	go func() {
		e.AgentStart()
		e.TurnStart()
		msg := agentmsg.NewUserText("hi")
		e.MessageStart(msg)
		e.MessageEnd(msg)
		e.AgentEnd([]agentmsg.Message{msg})
	}()

	var seen []Event
	for ev := range stream.Events() {
		seen = append(seen, ev)
	}

	if len(seen) == 0 || seen[len(seen)-1].Type != AgentEnd {
		t.Fatalf("last event should be agent_end, got %+v", seen)
	}

	result := stream.Result()
	if len(result) != 1 {
		t.Fatalf("expected 1 new message, got %d", len(result))
	}
}

func TestChanSinkDiscardsAfterSeal(t *testing.T) {
	sink := NewChanSink(4)
	sink.Emit(Event{Type: AgentEnd})
	// Second emit after terminal must not panic (send on closed channel).
	sink.Emit(Event{Type: TurnStart})

	count := 0
	for range sink.Chan() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 event through the channel, got %d", count)
	}
}

func TestMultiSinkFansOutInOrder(t *testing.T) {
	var a, b []Type
	s1 := NewCallbackSink(func(e Event) { a = append(a, e.Type) })
	s2 := NewCallbackSink(func(e Event) { b = append(b, e.Type) })
	m := NewMultiSink(s1, s2)

	m.Emit(Event{Type: AgentStart})
	m.Emit(Event{Type: TurnStart})

	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected both sinks to receive both events, got %v %v", a, b)
	}
}
