package agentobs

import (
	"context"
	"testing"
)

func TestSetupTracerProvider_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := SetupTracerProvider(context.Background(), ProviderConfig{})
	if err != nil {
		t.Fatalf("SetupTracerProvider: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
