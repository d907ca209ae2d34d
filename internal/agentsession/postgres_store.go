package agentsession

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/haasonsaas/agentcore/internal/agentconfig"
)

// PostgresStore persists sessions to Postgres, suitable for a multi-writer
// deployment sharing one database.
type PostgresStore struct {
	db *sql.DB

	stmtUpsert *sql.Stmt
	stmtGet    *sql.Stmt
	stmtDelete *sql.Stmt
}

// PostgresConfig configures a PostgresStore's connection pool.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns conservative pool defaults; DSN must still
// be set by the caller.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewPostgresStore opens a connection pool against cfg.DSN and ensures the
// schema exists.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("agentsession: postgres dsn is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("agentsession: open postgres database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("agentsession: ping postgres database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS agentcore_sessions (
		id            TEXT PRIMARY KEY,
		system_prompt TEXT NOT NULL,
		messages      JSONB NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("agentsession: migrate postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) prepareStatements() error {
	var err error

	s.stmtUpsert, err = s.db.Prepare(`
		INSERT INTO agentcore_sessions (id, system_prompt, messages, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("agentsession: prepare upsert: %w", err)
	}

	s.stmtGet, err = s.db.Prepare(`
		SELECT system_prompt, messages FROM agentcore_sessions WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("agentsession: prepare get: %w", err)
	}

	s.stmtDelete, err = s.db.Prepare(`
		DELETE FROM agentcore_sessions WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("agentsession: prepare delete: %w", err)
	}

	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, sess *agentconfig.Context) error {
	envelopes, err := encodeMessages(sess.Messages)
	if err != nil {
		return err
	}
	messagesJSON, err := json.Marshal(envelopes)
	if err != nil {
		return fmt.Errorf("agentsession: marshal message log: %w", err)
	}

	_, err = s.stmtUpsert.ExecContext(ctx, sessionID, sess.SystemPrompt, messagesJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("agentsession: save session %s: %w", sessionID, err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*agentconfig.Context, error) {
	var systemPrompt string
	var messagesJSON []byte

	err := s.stmtGet.QueryRowContext(ctx, sessionID).Scan(&systemPrompt, &messagesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("agentsession: load session %s: %w", sessionID, err)
	}

	var envelopes []envelope
	if err := json.Unmarshal(messagesJSON, &envelopes); err != nil {
		return nil, fmt.Errorf("agentsession: unmarshal message log for %s: %w", sessionID, err)
	}
	messages, err := decodeMessages(envelopes)
	if err != nil {
		return nil, err
	}

	return &agentconfig.Context{SystemPrompt: systemPrompt, Messages: messages}, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.stmtDelete.ExecContext(ctx, sessionID); err != nil {
		return fmt.Errorf("agentsession: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.stmtUpsert, s.stmtGet, s.stmtDelete} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("agentsession: errors closing postgres store: %v", errs)
	}
	return nil
}
