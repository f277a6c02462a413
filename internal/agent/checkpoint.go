package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ceprud-chatbot/internal/llm"
)

// CheckpointStore persists per-thread conversation state in SQLite so
// a session survives process restarts. A thread is one (user, subject)
// conversation.
type CheckpointStore struct {
	db *sql.DB
}

func NewCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	// Concurrent handler goroutines share this store; SQLite serializes
	// writers, so a single connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id  TEXT PRIMARY KEY,
		messages   TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint schema: %w", err)
	}
	return &CheckpointStore{db: db}, nil
}

func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Load returns the saved messages for a thread, or nil when the thread
// has no checkpoint yet.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) ([]llm.Message, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT messages FROM checkpoints WHERE thread_id = ?`, threadID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", threadID, err)
	}
	var messages []llm.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", threadID, err)
	}
	return messages, nil
}

// Save replaces the thread's checkpoint with messages.
func (s *CheckpointStore) Save(ctx context.Context, threadID string, messages []llm.Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %s: %w", threadID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO checkpoints (thread_id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		threadID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", threadID, err)
	}
	return nil
}

// Delete removes the thread's checkpoint. Missing threads are not an
// error.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", threadID, err)
	}
	return nil
}
