package agentsession

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
)

// SQLiteStore persists sessions to a local SQLite file. It is meant for a
// single-process demo or CLI, not a multi-writer deployment — see
// PostgresStore for that.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("agentsession: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("agentsession: ping sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		system_prompt TEXT NOT NULL,
		messages      TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("agentsession: migrate sqlite schema: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, sess *agentconfig.Context) error {
	envelopes, err := encodeMessages(sess.Messages)
	if err != nil {
		return err
	}
	messagesJSON, err := json.Marshal(envelopes)
	if err != nil {
		return fmt.Errorf("agentsession: marshal message log: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, system_prompt, messages, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, sessionID, sess.SystemPrompt, messagesJSON, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("agentsession: save session %s: %w", sessionID, err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*agentconfig.Context, error) {
	var systemPrompt, messagesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT system_prompt, messages FROM sessions WHERE id = ?
	`, sessionID).Scan(&systemPrompt, &messagesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("agentsession: load session %s: %w", sessionID, err)
	}

	var envelopes []envelope
	if err := json.Unmarshal([]byte(messagesJSON), &envelopes); err != nil {
		return nil, fmt.Errorf("agentsession: unmarshal message log for %s: %w", sessionID, err)
	}
	messages, err := decodeMessages(envelopes)
	if err != nil {
		return nil, err
	}

	return &agentconfig.Context{SystemPrompt: systemPrompt, Messages: messages}, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("agentsession: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
