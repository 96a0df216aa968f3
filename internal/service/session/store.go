// Package session persists the per-session chat log and reconstructs the
// conversation window the classifiers and the generator see.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

// Store is the append-only session log. ReadWindow returns the trailing
// window of a session's messages with non-text entries filtered out,
// oldest first. An unknown session yields an empty window, not an error.
type Store interface {
	Append(ctx context.Context, msg chat.Message) error
	ReadWindow(ctx context.Context, sessionID string, max int) ([]chat.Message, error)
	Close() error
}

// SQLiteStore keeps the chat log in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and initializes
// the schema. Parent directories are created as needed.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode allows readers to proceed while a turn is being logged.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping chat database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize chat schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id           TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		sender       TEXT NOT NULL,
		content      TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		metadata     TEXT,
		created_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append logs one message. A missing ID, timestamp or message type is
// filled in; created_at is stored at nanosecond precision so messages
// within one turn keep their order.
func (s *SQLiteStore) Append(ctx context.Context, msg chat.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.MessageType == "" {
		msg.MessageType = chat.TypeText
	}

	var metadata any
	if len(msg.Metadata) > 0 {
		encoded, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode message metadata: %w", err)
		}
		metadata = string(encoded)
	}

	query := `
		INSERT INTO chat_messages (id, session_id, user_id, sender, content, message_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.UserID, msg.Sender, msg.Content, msg.MessageType, metadata, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ReadWindow fetches the last max messages of a session in chronological
// order, then drops non-text entries. Ties on created_at break by insertion
// order.
func (s *SQLiteStore) ReadWindow(ctx context.Context, sessionID string, max int) ([]chat.Message, error) {
	if max <= 0 {
		max = 10
	}

	query := `
		SELECT id, session_id, user_id, sender, content, message_type, metadata, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, max)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []chat.Message
	for rows.Next() {
		var msg chat.Message
		var metadata sql.NullString
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &msg.Sender, &msg.Content, &msg.MessageType, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	window := make([]chat.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		if newestFirst[i].MessageType != chat.TypeText {
			continue
		}
		window = append(window, newestFirst[i])
	}
	return window, nil
}
