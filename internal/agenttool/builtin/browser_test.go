package builtin

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestBrowserTool_Descriptors(t *testing.T) {
	tool := NewBrowserTool(5 * time.Second)
	if tool.Name() != "browser" {
		t.Errorf("Name() = %q, want browser", tool.Name())
	}
	var schema map[string]any
	if err := json.Unmarshal(tool.Parameters(), &schema); err != nil {
		t.Fatalf("Parameters() is not valid JSON: %v", err)
	}
}

func TestNewBrowserTool_DefaultsTimeout(t *testing.T) {
	tool := NewBrowserTool(0)
	if tool.timeout <= 0 {
		t.Errorf("timeout = %v, want a positive default", tool.timeout)
	}
}

func TestBrowserTool_Execute_InvalidArgs(t *testing.T) {
	tool := NewBrowserTool(time.Second)

	cases := []json.RawMessage{
		json.RawMessage(`not json`),
		json.RawMessage(`{"action":"navigate"}`),          // missing url
		json.RawMessage(`{"action":"click"}`),              // missing selector
		json.RawMessage(`{"action":"type","selector":"#x"}`), // missing text
		json.RawMessage(`{"action":"read_text"}`),          // missing selector
		json.RawMessage(`{"action":"eval"}`),               // missing script
		json.RawMessage(`{"action":"teleport"}`),           // unknown action
	}
	for _, args := range cases {
		if _, err := tool.Execute(context.Background(), "call-1", args, nil); err == nil {
			t.Errorf("Execute(%s) expected error, got nil", args)
		}
	}
}
