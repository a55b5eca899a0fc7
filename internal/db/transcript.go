package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/events"
)

// Entry kinds.
const (
	KindChat = "chat"
	KindIM   = "im"
)

// Entry is one stored line of conversation.
type Entry struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Time      time.Time `json:"time"`
	FromID    string    `json:"from_id"`
	FromName  string    `json:"from_name"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Message   string    `json:"message"`
}

// Transcript stores received chat and instant messages.
type Transcript struct {
	db *Database
}

// OpenTranscript opens the transcript database and creates its schema.
func OpenTranscript(path string) (*Transcript, error) {
	database, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}

	t := &Transcript{db: database}
	if err := t.migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate transcript database: %w", err)
	}
	return t, nil
}

func (t *Transcript) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			received   INTEGER NOT NULL,
			from_id    TEXT NOT NULL DEFAULT '',
			from_name  TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '',
			message    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(received);
	`
	_, err := t.db.ExecContext(context.Background(), schema)
	return err
}

// Close closes the underlying database.
func (t *Transcript) Close() error {
	return t.db.Close()
}

// Save stores an entry and returns it with its id set.
func (t *Transcript) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO messages (kind, received, from_id, from_name, session_id, detail, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Time.UnixNano(), e.FromID, e.FromName, e.SessionID, e.Detail, e.Message)
	if err != nil {
		return e, fmt.Errorf("failed to save %s entry: %w", e.Kind, err)
	}
	e.ID, _ = res.LastInsertId()
	return e, nil
}

// Recent returns up to limit entries, oldest first.
func (t *Transcript) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, kind, received, from_id, from_name, session_id, detail, message
		 FROM (SELECT * FROM messages ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e        Entry
			received int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &received, &e.FromID, &e.FromName, &e.SessionID, &e.Detail, &e.Message); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, received).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and returns how many went.
func (t *Transcript) Prune(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := t.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE received < ?`, before.UnixNano())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// HandleEvent is an events.HandlerFunc that records chat and IM events.
func (t *Transcript) HandleEvent(ctx context.Context, event events.Event) error {
	var e Entry
	switch p := event.Payload.(type) {
	case events.ChatPayload:
		e = Entry{
			Kind:     KindChat,
			FromID:   p.SourceID.String(),
			FromName: p.FromName,
			Detail:   p.ChatType.String(),
			Message:  p.Message,
		}
	case events.InstantMessagePayload:
		e = Entry{
			Kind:      KindIM,
			FromID:    p.FromAgentID.String(),
			FromName:  p.FromName,
			SessionID: p.SessionID.String(),
			Detail:    p.Dialog.String(),
			Message:   p.Message,
		}
	default:
		return nil
	}
	e.Time = event.Time

	saved, err := t.Save(ctx, e)
	if err != nil {
		return err
	}
	log.Debug().Int64("id", saved.ID).Str("kind", saved.Kind).Msg("transcript entry saved")
	return nil
}
