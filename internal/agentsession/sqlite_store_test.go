package agentsession

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	sess := &agentconfig.Context{
		SystemPrompt: "you are a helpful assistant",
		Messages: []agentmsg.Message{
			agentmsg.UserMessage{Content: []agentmsg.Block{agentmsg.TextBlock("hi")}},
			agentmsg.AssistantMessage{
				Content:    []agentmsg.Block{agentmsg.TextBlock("hello")},
				StopReason: agentmsg.StopOK,
			},
		},
	}

	if err := store.Save(ctx, "sess-1", sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SystemPrompt != sess.SystemPrompt {
		t.Errorf("SystemPrompt = %q, want %q", loaded.SystemPrompt, sess.SystemPrompt)
	}
	if len(loaded.Messages) != len(sess.Messages) {
		t.Fatalf("got %d messages, want %d", len(loaded.Messages), len(sess.Messages))
	}
}

func TestSQLiteStore_SaveOverwritesExisting(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := &agentconfig.Context{SystemPrompt: "v1"}
	if err := store.Save(ctx, "sess-1", first); err != nil {
		t.Fatalf("Save v1: %v", err)
	}
	second := &agentconfig.Context{SystemPrompt: "v2"}
	if err := store.Save(ctx, "sess-1", second); err != nil {
		t.Fatalf("Save v2: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SystemPrompt != "v2" {
		t.Errorf("SystemPrompt = %q, want %q (overwrite should win)", loaded.SystemPrompt, "v2")
	}
}

func TestSQLiteStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	_, err := store.Load(context.Background(), "does-not-exist")
	if err != ErrNotFound {
		t.Errorf("got err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", &agentconfig.Context{SystemPrompt: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "sess-1"); err != ErrNotFound {
		t.Errorf("got err = %v, want ErrNotFound after delete", err)
	}

	// Deleting an already-absent session is not an error.
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Errorf("Delete of missing session: %v", err)
	}
}
