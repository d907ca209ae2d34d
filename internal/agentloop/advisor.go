package agentloop

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// runAdvisors runs every configured advisor against one just-committed
// tool result and returns the advisor messages, if any, to be committed to
// the parent log in order. A nil Trigger never fires; a Trigger error or a
// nil/failing CreateContext is reported as advisor_error and does not fire
// the advisor. advisor_end is only emitted when ExtractResult returns a
// non-empty string.
func runAdvisors(ctx context.Context, emitter *agentevent.Emitter, agentCtx *agentconfig.Context, cfg agentconfig.Config, call *agentmsg.ToolCallBlock, result agentmsg.ToolResultMessage) []agentmsg.Message {
	if len(cfg.Advisors) == 0 {
		return nil
	}

	params := agentconfig.TriggerParams{
		Messages:   agentCtx.Messages,
		ToolName:   call.Name,
		ToolArgs:   call.Arguments,
		ToolResult: result,
	}

	var out []agentmsg.Message
	for _, adv := range cfg.Advisors {
		if msg, ok := runAdvisor(ctx, emitter, cfg, adv, params); ok {
			out = append(out, msg)
		}
	}
	return out
}

func runAdvisor(ctx context.Context, emitter *agentevent.Emitter, cfg agentconfig.Config, adv agentconfig.AdvisorConfig, params agentconfig.TriggerParams) (agentmsg.Message, bool) {
	if adv.Trigger == nil {
		return nil, false
	}

	fire, err := adv.Trigger(ctx, params)
	if err != nil {
		emitter.AdvisorFailed(adv.Name, err)
		return nil, false
	}
	if !fire {
		return nil, false
	}

	emitter.AdvisorStarted(adv.Name, params.ToolName)

	if adv.CreateContext == nil {
		emitter.AdvisorFailed(adv.Name, errors.New("agentcore: advisor has no CreateContext"))
		return nil, false
	}
	advCtx, err := adv.CreateContext(ctx, params)
	if err != nil {
		emitter.AdvisorFailed(adv.Name, err)
		return nil, false
	}

	childCfg := childConfig(cfg, adv)
	childAgentCtx := &agentconfig.Context{
		SystemPrompt: advCtx.SystemPrompt,
		Tools:        adv.Tools,
	}

	childStream, err := Start(ctx, advCtx.Messages, childAgentCtx, childCfg)
	if err != nil {
		emitter.AdvisorFailed(adv.Name, err)
		return nil, false
	}

	for ev := range childStream.Events() {
		emitter.AdvisorForwarded(adv.Name, ev)
	}
	childMessages := childStream.Result()

	extract := adv.ExtractResult
	if extract == nil {
		extract = DefaultExtractResult
	}
	resultText := extract(childMessages)
	if resultText == "" {
		return nil, false
	}

	emitter.AdvisorEnded(adv.Name, resultText)
	return agentmsg.AdvisorMessage{
		AdvisorName: adv.Name,
		Model:       childCfg.Model,
		Content:     resultText,
		CreatedAt:   time.Now(),
	}, true
}

// childConfig builds the nested run's Config, falling back to the parent
// run's corresponding field for everything an AdvisorConfig leaves unset:
// advisors inherit the parent's streaming setup by default.
func childConfig(parent agentconfig.Config, adv agentconfig.AdvisorConfig) agentconfig.Config {
	child := agentconfig.Config{
		Model:               firstNonEmpty(adv.Model, parent.Model),
		Reasoning:           firstNonEmpty(adv.Reasoning, parent.Reasoning),
		Adapter:             parent.Adapter,
		Advisors:            adv.Advisors,
		ConvertToLLM:        adv.ConvertToLLM,
		Logger:              parent.Logger,
		MaxIterations:       parent.MaxIterations,
		Validator:           parent.Validator,
		ApprovalChecker:     parent.ApprovalChecker,
		ResultGuard:         parent.ResultGuard,
		GetSteeringMessages: nil,
		GetFollowUpMessages: nil,
	}
	if adv.Adapter != nil {
		child.Adapter = adv.Adapter
	}
	if child.ConvertToLLM == nil {
		child.ConvertToLLM = DefaultConvertToLLM
	}
	if adv.GetAPIKey != nil {
		child.GetAPIKey = adv.GetAPIKey
	} else {
		child.GetAPIKey = parent.GetAPIKey
	}
	if adv.APIKey != "" {
		child.APIKey = adv.APIKey
	} else {
		child.APIKey = parent.APIKey
	}
	return child
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
