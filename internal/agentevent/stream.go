package agentevent

import "github.com/haasonsaas/agentcore/pkg/agentmsg"

// Stream is the consumer-facing handle returned by Start/Continue: an
// asynchronous sequence of events with a terminal value, implemented as a
// buffered channel plus a settled result captured when the terminal event
// is observed.
type Stream struct {
	sink   *ChanSink
	result chan []agentmsg.Message
}

// NewStream creates a Stream backed by a freshly allocated ChanSink.
func NewStream(buffer int) *Stream {
	return &Stream{
		sink:   NewChanSink(buffer),
		result: make(chan []agentmsg.Message, 1),
	}
}

// Sink returns the Stream's event sink, for wiring into an Emitter (directly
// or via a MultiSink alongside plugin/observability sinks).
func (s *Stream) Sink() Sink { return s.sink }

// Events returns the channel of events for range-based consumption. The
// channel closes after the terminal (agent_end) event.
func (s *Stream) Events() <-chan Event { return s.sink.Chan() }

// settle records the terminal value. Called exactly once by the loop after
// observing its own agent_end event.
func (s *Stream) settle(newMessages []agentmsg.Message) {
	s.result <- newMessages
	close(s.result)
}

// Result blocks until the stream is sealed and returns the terminal value:
// the new messages appended to the log during this run.
func (s *Stream) Result() []agentmsg.Message {
	return <-s.result
}

// sealingSink wraps a Stream's underlying sink so that observing the
// terminal event also settles the Stream's result future.
type sealingSink struct {
	stream *Stream
}

func (ss sealingSink) Emit(e Event) {
	ss.stream.sink.Emit(e)
	if IsTerminal(e) {
		ss.stream.settle(e.NewMessages)
	}
}

// SealingSink returns a Sink that both forwards events to the Stream's
// channel and settles its Result() future on the terminal event. This is
// the Sink the agent loop should emit through.
func (s *Stream) SealingSink() Sink { return sealingSink{stream: s} }
