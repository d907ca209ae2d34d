package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haasonsaas/agentcore/internal/agentstream"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// buildAdapter resolves the --provider flag to a concrete agentstream.Adapter.
// "mock" needs no credentials and is the default so the demo runs out of the
// box; anthropic/openai read their API key from the usual environment
// variable unless --api-key-env overrides it.
func buildAdapter(ctx context.Context, provider, apiKeyEnv string) (agentstream.Adapter, error) {
	switch provider {
	case "", "mock":
		return &agentstream.MockAdapter{
			Responses: []agentmsg.AssistantMessage{
				{
					Content:    []agentmsg.Block{agentmsg.TextBlock("This is a scripted reply from the mock provider. Pass --provider anthropic or --provider openai with a real API key for a live model.")},
					StopReason: agentmsg.StopOK,
				},
			},
		}, nil

	case "anthropic":
		if apiKeyEnv == "" {
			apiKeyEnv = "ANTHROPIC_API_KEY"
		}
		if os.Getenv(apiKeyEnv) == "" {
			return nil, fmt.Errorf("environment variable %s is not set", apiKeyEnv)
		}
		return agentstream.NewAnthropicAdapter(agentstream.AnthropicConfig{
			MaxRetries: 3,
			RetryDelay: time.Second,
		}), nil

	case "openai":
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENAI_API_KEY"
		}
		if os.Getenv(apiKeyEnv) == "" {
			return nil, fmt.Errorf("environment variable %s is not set", apiKeyEnv)
		}
		return agentstream.NewOpenAIAdapter(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q (want mock, anthropic, or openai)", provider)
	}
}

// resolveAPIKeyFromEnv returns an agentstream.APIKeyResolver reading the key
// fresh from the environment on every call, per Options.ResolveAPIKey's
// no-caching contract.
func resolveAPIKeyFromEnv(apiKeyEnv string) agentstream.APIKeyResolver {
	return func(ctx context.Context, provider string) (string, error) {
		return os.Getenv(apiKeyEnv), nil
	}
}
