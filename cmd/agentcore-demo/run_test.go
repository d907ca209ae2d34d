package main

import (
	"context"
	"os"
	"testing"
)

func TestBuildRootCmd_HasSubcommands(t *testing.T) {
	root := buildRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	if !names["run"] || !names["chat"] {
		t.Errorf("expected run and chat subcommands, got %v", names)
	}
}

func TestBuildAdapter_Mock(t *testing.T) {
	adapter, err := buildAdapter(context.Background(), "mock", "")
	if err != nil {
		t.Fatalf("buildAdapter(mock): %v", err)
	}
	if adapter.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", adapter.Name())
	}
}

func TestBuildAdapter_MissingAPIKey(t *testing.T) {
	os.Unsetenv("AGENTCORE_DEMO_TEST_KEY")
	_, err := buildAdapter(context.Background(), "anthropic", "AGENTCORE_DEMO_TEST_KEY")
	if err == nil {
		t.Fatal("expected error when api key env var is unset")
	}
}

func TestBuildAdapter_UnknownProvider(t *testing.T) {
	_, err := buildAdapter(context.Background(), "carrier-pigeon", "")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRunOnce_MockProvider(t *testing.T) {
	err := runOnce(context.Background(), "hello there", runFlags{
		provider:   "mock",
		systemText: "you are a test assistant",
		maxTurns:   3,
	})
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
}
