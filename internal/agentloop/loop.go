// Package agentloop implements the turn-taking state machine that drives
// one agent run: inject pending messages, stream an assistant reply,
// decide whether it called tools, dispatch them, and either end the turn
// or loop again, plus the advisor sub-agent recursion fired off of tool
// results.
package agentloop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/internal/agenterrors"
	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/internal/agentstream"
	"github.com/haasonsaas/agentcore/internal/agenttool"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

const eventBufferSize = 256

// Start begins a new run: prompts become the first pending batch,
// appended to agentCtx.Messages as they are committed. Start polls
// cfg.GetSteeringMessages once before the first turn_start and folds
// whatever it returns in ahead of prompts; Continue does not do this.
func Start(ctx context.Context, prompts []agentmsg.Message, agentCtx *agentconfig.Context, cfg agentconfig.Config) (*agentevent.Stream, error) {
	cfg, err := prepareConfig(cfg)
	if err != nil {
		return nil, err
	}
	pending := prompts
	if cfg.GetSteeringMessages != nil {
		pending = append(append([]agentmsg.Message{}, prompts...), cfg.GetSteeringMessages()...)
	}
	return run(ctx, agentCtx, cfg, pending)
}

// Continue resumes an existing context: the next turn streams an assistant
// reply from the log as it stands, with no new pending batch. The last
// message in agentCtx.Messages must not already be an assistant message,
// and the log must be non-empty.
func Continue(ctx context.Context, agentCtx *agentconfig.Context, cfg agentconfig.Config) (*agentevent.Stream, error) {
	if len(agentCtx.Messages) == 0 {
		return nil, agenterrors.ErrContinueEmptyContext
	}
	if agentCtx.Messages[len(agentCtx.Messages)-1].Kind() == agentmsg.KindAssistant {
		return nil, agenterrors.ErrContinueFromAssistant
	}
	cfg, err := prepareConfig(cfg)
	if err != nil {
		return nil, err
	}
	return run(ctx, agentCtx, cfg, nil)
}

func prepareConfig(cfg agentconfig.Config) (agentconfig.Config, error) {
	cfg = agentconfig.MergeConfig(agentconfig.DefaultConfig(), cfg)
	if cfg.Adapter == nil {
		return cfg, errors.New("agentcore: Config.Adapter is required")
	}
	if cfg.ConvertToLLM == nil {
		cfg.ConvertToLLM = DefaultConvertToLLM
	}
	return cfg, nil
}

// run drives the state machine in its own goroutine and returns the event
// stream the caller consumes concurrently with execution.
func run(ctx context.Context, agentCtx *agentconfig.Context, cfg agentconfig.Config, initialPending []agentmsg.Message) (*agentevent.Stream, error) {
	registry, err := agenttool.FromSlice(agentCtx.Tools)
	if err != nil {
		return nil, fmt.Errorf("agentcore: building tool registry: %w", err)
	}

	stream := agentevent.NewStream(eventBufferSize)
	sink := stream.SealingSink()
	if len(cfg.EventSinks) > 0 {
		sink = agentevent.NewMultiSink(append([]agentevent.Sink{sink}, cfg.EventSinks...)...)
	}
	emitter := agentevent.NewEmitter(uuid.NewString(), sink)

	var cancel context.CancelFunc
	if cfg.MaxWallTime > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWallTime)
	}

	go func() {
		if cancel != nil {
			defer cancel()
		}
		newMessages := executeTurns(ctx, emitter, registry, agentCtx, cfg, initialPending)
		emitter.AgentEnd(newMessages)
	}()

	return stream, nil
}

// executeTurns runs TURN_START..TURN_END/TERMINATE until the run has
// nothing left pending and no tool dispatch produced steering or follow-up
// messages, or the iteration bound is hit.
func executeTurns(ctx context.Context, emitter *agentevent.Emitter, registry *agenttool.Registry, agentCtx *agentconfig.Context, cfg agentconfig.Config, initialPending []agentmsg.Message) []agentmsg.Message {
	var newMessages []agentmsg.Message
	pending := initialPending

	emitter.AgentStart()

	for iter := 1; cfg.MaxIterations <= 0 || iter <= cfg.MaxIterations; iter++ {
		emitter.SetTurn(iter)
		emitter.TurnStart()

		for _, m := range pending {
			agentCtx.Messages = append(agentCtx.Messages, m)
			newMessages = append(newMessages, m)
			emitter.MessageStart(m)
			emitter.MessageEnd(m)
		}
		pending = nil

		if ctx.Err() != nil {
			return newMessages
		}

		assistant, err := streamAssistant(ctx, emitter, agentCtx, cfg)
		if err != nil {
			cfg.Logger.Error("agentloop: streaming assistant turn failed", "error", err)
			return newMessages
		}
		agentCtx.Messages = append(agentCtx.Messages, assistant)
		newMessages = append(newMessages, assistant)

		toolCalls := assistant.ToolCalls()
		if len(toolCalls) == 0 {
			emitter.TurnEnd(assistant, nil)
			nextPending := pollFollowUp(cfg)
			if len(nextPending) == 0 {
				return newMessages
			}
			pending = nextPending
			continue
		}

		appendedViaCallback := 0
		dispatcher := agenttool.NewDispatcher(agenttool.Config{
			Registry:            registry,
			Validator:           cfg.Validator,
			ApprovalChecker:     cfg.ApprovalChecker,
			ResultGuard:         cfg.ResultGuard,
			GetSteeringMessages: cfg.GetSteeringMessages,
			RunAdvisors: func(actx context.Context, call *agentmsg.ToolCallBlock, result agentmsg.ToolResultMessage) {
				agentCtx.Messages = append(agentCtx.Messages, result)
				newMessages = append(newMessages, result)
				appendedViaCallback++

				for _, advMsg := range runAdvisors(actx, emitter, agentCtx, cfg, call, result) {
					agentCtx.Messages = append(agentCtx.Messages, advMsg)
					newMessages = append(newMessages, advMsg)
				}
			},
		})

		results, steering := dispatcher.Dispatch(ctx, emitter, assistant)
		// Skipped/phantom results never go through RunAdvisors; they always
		// form the trailing suffix of results appended right before
		// Dispatch returns (skipRemaining fires at most once).
		for _, r := range results[appendedViaCallback:] {
			agentCtx.Messages = append(agentCtx.Messages, r)
			newMessages = append(newMessages, r)
		}
		emitter.TurnEnd(assistant, results)

		if len(steering) > 0 {
			pending = steering
			continue
		}
		if s := pollSteering(cfg); len(s) > 0 {
			pending = s
			continue
		}
		if f := pollFollowUp(cfg); len(f) > 0 {
			pending = f
			continue
		}
		return newMessages
	}

	cfg.Logger.Warn("agentloop: max iterations reached", "max_iterations", cfg.MaxIterations)
	return newMessages
}

func pollSteering(cfg agentconfig.Config) []agentmsg.Message {
	if cfg.GetSteeringMessages == nil {
		return nil
	}
	return cfg.GetSteeringMessages()
}

func pollFollowUp(cfg agentconfig.Config) []agentmsg.Message {
	if cfg.GetFollowUpMessages == nil {
		return nil
	}
	return cfg.GetFollowUpMessages()
}

// streamAssistant projects the log through TransformContext and
// ConvertToLLM, calls the adapter, and forwards each streaming event to
// the emitter as message_start/message_update/message_end.
func streamAssistant(ctx context.Context, emitter *agentevent.Emitter, agentCtx *agentconfig.Context, cfg agentconfig.Config) (agentmsg.AssistantMessage, error) {
	logMessages := agentCtx.Messages
	if cfg.TransformContext != nil {
		transformed, err := cfg.TransformContext(ctx, logMessages)
		if err != nil {
			return agentmsg.AssistantMessage{}, fmt.Errorf("agentcore: TransformContext: %w", err)
		}
		logMessages = transformed
	}

	llmMessages, err := cfg.ConvertToLLM(ctx, logMessages)
	if err != nil {
		return agentmsg.AssistantMessage{}, fmt.Errorf("agentcore: ConvertToLLM: %w", err)
	}

	tools := make([]agentstream.ToolSpec, 0, len(agentCtx.Tools))
	for _, t := range agentCtx.Tools {
		tools = append(tools, agentstream.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	req := agentstream.Request{
		Model:    cfg.Model,
		System:   agentCtx.SystemPrompt,
		Messages: llmMessages,
		Tools:    tools,
	}
	opts := agentstream.Options{
		APIKeyResolver: cfg.GetAPIKey,
		StaticAPIKey:   cfg.APIKey,
		Reasoning:      cfg.Reasoning,
	}

	events, err := cfg.Adapter.Stream(ctx, req, opts)
	if err != nil {
		return agentmsg.AssistantMessage{}, err
	}

	var partial agentmsg.AssistantMessage
	for ev := range events {
		switch ev.Kind {
		case agentstream.EventStart:
			partial = ev.Partial
			emitter.MessageStart(partial)
		case agentstream.EventDone:
			partial = ev.Partial
			emitter.MessageEnd(partial)
			return partial, nil
		case agentstream.EventError:
			partial = ev.Partial
			partial.StopReason = agentmsg.StopError
			emitter.MessageEnd(partial)
			return partial, nil
		default:
			partial = ev.Partial
			emitter.MessageUpdate(partial, &agentevent.AssistantStreamEvent{
				Kind:  fmt.Sprintf("%v", ev.Kind),
				Delta: ev.Delta,
			})
		}
	}

	return agentmsg.AssistantMessage{}, errors.New("agentcore: adapter closed its stream without a done or error event")
}
