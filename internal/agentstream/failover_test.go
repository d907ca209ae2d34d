package agentstream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// failingAdapter always fails with the given error.
type failingAdapter struct {
	name      string
	err       error
	callCount atomic.Int32
}

func (a *failingAdapter) Name() string { return a.name }
func (a *failingAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	a.callCount.Add(1)
	return nil, a.err
}

// succeedingAdapter always succeeds with a trivial done event.
type succeedingAdapter struct {
	name      string
	callCount atomic.Int32
}

func (a *succeedingAdapter) Name() string { return a.name }
func (a *succeedingAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	a.callCount.Add(1)
	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{Kind: EventDone, Partial: agentmsg.AssistantMessage{StopReason: agentmsg.StopOK}}
	close(ch)
	return ch, nil
}

func TestFailoverAdapterPrimarySuccess(t *testing.T) {
	primary := &succeedingAdapter{name: "primary"}
	secondary := &succeedingAdapter{name: "secondary"}

	f := NewFailoverAdapter(DefaultFailoverConfig(), primary, secondary)
	ch, err := f.Stream(context.Background(), Request{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range ch {
	}
	if primary.callCount.Load() != 1 {
		t.Fatalf("expected primary to be called once, got %d", primary.callCount.Load())
	}
	if secondary.callCount.Load() != 0 {
		t.Fatalf("expected secondary untouched, got %d", secondary.callCount.Load())
	}
}

func TestFailoverAdapterFailsOverOnServerError(t *testing.T) {
	primary := &failingAdapter{name: "primary", err: errors.New("received 503 service unavailable")}
	secondary := &succeedingAdapter{name: "secondary"}

	cfg := DefaultFailoverConfig()
	cfg.MaxRetries = 0
	f := NewFailoverAdapter(cfg, primary, secondary)

	ch, err := f.Stream(context.Background(), Request{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range ch {
	}
	if secondary.callCount.Load() != 1 {
		t.Fatalf("expected failover to secondary, got %d calls", secondary.callCount.Load())
	}
}

func TestFailoverAdapterAuthErrorDoesNotRetrySameProvider(t *testing.T) {
	primary := &failingAdapter{name: "primary", err: errors.New("401 unauthorized: invalid api key")}

	cfg := DefaultFailoverConfig()
	cfg.MaxRetries = 2
	f := NewFailoverAdapter(cfg, primary)

	_, err := f.Stream(context.Background(), Request{}, Options{})
	if err == nil {
		t.Fatal("expected error with no providers available")
	}
	if primary.callCount.Load() != 1 {
		t.Fatalf("auth errors should not be retried, got %d calls", primary.callCount.Load())
	}
}

func TestFailoverAdapterCircuitBreakerOpensAfterThreshold(t *testing.T) {
	primary := &failingAdapter{name: "primary", err: errors.New("500 internal server error")}
	secondary := &succeedingAdapter{name: "secondary"}

	cfg := DefaultFailoverConfig()
	cfg.MaxRetries = 0
	cfg.CircuitBreakerThreshold = 2
	f := NewFailoverAdapter(cfg, primary, secondary)

	for i := 0; i < 2; i++ {
		ch, err := f.Stream(context.Background(), Request{}, Options{})
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		for range ch {
		}
	}

	if primary.callCount.Load() != 2 {
		t.Fatalf("expected primary tried twice before circuit opens, got %d", primary.callCount.Load())
	}

	ch, err := f.Stream(context.Background(), Request{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range ch {
	}
	if primary.callCount.Load() != 2 {
		t.Fatalf("expected circuit breaker to skip primary, call count stayed %d", primary.callCount.Load())
	}
}

func TestMockAdapterReplaysScriptedResponses(t *testing.T) {
	m := &MockAdapter{Responses: []agentmsg.AssistantMessage{
		{Content: []agentmsg.Block{agentmsg.TextBlock("hello")}, StopReason: agentmsg.StopOK},
	}}

	ch, err := m.Stream(context.Background(), Request{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotText string
	var gotDone bool
	for ev := range ch {
		if ev.Kind == EventTextDelta {
			gotText += ev.Delta
		}
		if ev.Kind == EventDone {
			gotDone = true
		}
	}
	if gotText != "hello" {
		t.Fatalf("expected text %q, got %q", "hello", gotText)
	}
	if !gotDone {
		t.Fatal("expected a done event")
	}
}
