package agenttool

import (
	"context"
	"sync"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// ParallelExecutor runs tool calls from one assistant message concurrently,
// bounded by Concurrency. It is NOT the default dispatch path: tool calls
// within one assistant message normally execute sequentially, in
// declaration order. This type exists as an explicitly opt-in extension
// for callers who know their tools are independent and want lower latency;
// it does not implement steering-interrupt skipping or advisor firing,
// since both require the sequential ordering this type deliberately does
// not provide. Results are returned in the original declaration order
// regardless of completion order.
type ParallelExecutor struct {
	Dispatcher  *Dispatcher
	Concurrency int
}

// NewParallelExecutor constructs a ParallelExecutor with the given
// concurrency cap (at least 1).
func NewParallelExecutor(d *Dispatcher, concurrency int) *ParallelExecutor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ParallelExecutor{Dispatcher: d, Concurrency: concurrency}
}

// DispatchAll runs every tool call in assistant concurrently (bounded by
// Concurrency) and returns results in original declaration order. Steering
// interrupts and advisors are not evaluated in this path.
func (p *ParallelExecutor) DispatchAll(ctx context.Context, emitter *agentevent.Emitter, assistant agentmsg.AssistantMessage) []agentmsg.ToolResultMessage {
	calls := assistant.ToolCalls()
	results := make([]agentmsg.ToolResultMessage, len(calls))

	sem := make(chan struct{}, p.Concurrency)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c *agentmsg.ToolCallBlock) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := p.Dispatcher.executeOne(ctx, emitter, c)
			result = p.Dispatcher.cfg.ResultGuard.Apply(c.Name, result)
			emitter.ToolExecutionEnd(c.ID, c.Name, &result, result.IsError)
			emitter.MessageStart(result)
			emitter.MessageEnd(result)
			results[idx] = result
		}(i, call)
	}

	wg.Wait()
	return results
}
