package agentsession

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

func setupMockPostgresStore(t *testing.T) (sqlmock.Sqlmock, *PostgresStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare("INSERT INTO agentcore_sessions")
	mock.ExpectPrepare("SELECT system_prompt, messages")
	mock.ExpectPrepare("DELETE FROM agentcore_sessions")

	store := &PostgresStore{db: db}
	if err := store.prepareStatements(); err != nil {
		t.Fatalf("prepareStatements: %v", err)
	}
	return mock, store
}

func TestPostgresStore_Save(t *testing.T) {
	mock, store := setupMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO agentcore_sessions").
		WithArgs("sess-1", "be helpful", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sess := &agentconfig.Context{
		SystemPrompt: "be helpful",
		Messages:     []agentmsg.Message{agentmsg.UserMessage{Content: []agentmsg.Block{agentmsg.TextBlock("hi")}}},
	}
	if err := store.Save(context.Background(), "sess-1", sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_Load(t *testing.T) {
	mock, store := setupMockPostgresStore(t)

	rows := sqlmock.NewRows([]string{"system_prompt", "messages"}).
		AddRow("be helpful", []byte(`[{"kind":"user","payload":{"content":[{"type":"text","text":"hi"}]}}]`))
	mock.ExpectQuery("SELECT system_prompt, messages").
		WithArgs("sess-1").
		WillReturnRows(rows)

	got, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SystemPrompt != "be helpful" {
		t.Errorf("SystemPrompt = %q, want %q", got.SystemPrompt, "be helpful")
	}
	if len(got.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(got.Messages))
	}
}

func TestPostgresStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	mock, store := setupMockPostgresStore(t)

	mock.ExpectQuery("SELECT system_prompt, messages").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("got err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	mock, store := setupMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM agentcore_sessions").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Delete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()
	if cfg.MaxOpenConns <= 0 || cfg.ConnMaxLifetime <= 0 {
		t.Errorf("DefaultPostgresConfig returned zero-value pool settings: %+v", cfg)
	}
}
