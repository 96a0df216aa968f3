package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Submitter persists a finalized report.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, form *Form) error
}

// SQLiteSubmitter writes finalized reports to a local SQLite database.
type SQLiteSubmitter struct {
	db *sql.DB
}

// NewSQLiteSubmitter opens (or creates) the reports database at dbPath.
func NewSQLiteSubmitter(ctx context.Context, dbPath string) (*SQLiteSubmitter, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create reports directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open reports database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping reports database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		issue_type  TEXT NOT NULL,
		description TEXT NOT NULL,
		location    TEXT NOT NULL,
		attachments TEXT,
		created_at  INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize reports schema: %w", err)
	}

	return &SQLiteSubmitter{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSubmitter) Close() error {
	return s.db.Close()
}

// Submit inserts one report row.
func (s *SQLiteSubmitter) Submit(ctx context.Context, sessionID string, form *Form) error {
	var attachments any
	if len(form.Attachments) > 0 {
		encoded, err := json.Marshal(form.Attachments)
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachments = string(encoded)
	}

	id := uuid.NewString()
	query := `
		INSERT INTO reports (id, session_id, user_id, issue_type, description, location, attachments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id, sessionID, form.UserID, form.IssueType, form.Description, form.Location, attachments, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	log.Printf("[report] submitted report id=%s session=%s type=%q", id, sessionID, form.IssueType)
	return nil
}
