package main

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/internal/agentloop"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// startAgent and continueAgent are the two call sites this demo exercises;
// everything else in the package is CLI plumbing around them.

func startAgent(ctx context.Context, prompts []agentmsg.Message, agentCtx *agentconfig.Context, cfg agentconfig.Config) (*agentevent.Stream, error) {
	return agentloop.Start(ctx, prompts, agentCtx, cfg)
}

func continueAgent(ctx context.Context, agentCtx *agentconfig.Context, cfg agentconfig.Config) (*agentevent.Stream, error) {
	return agentloop.Continue(ctx, agentCtx, cfg)
}
