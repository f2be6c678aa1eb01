package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store defines the persistence interface for user records. Like the device
// store, records are written whole: a successful Save means the durable copy
// matches the in-memory one.
type Store interface {
	// Load retrieves every user record, keyed by user ID.
	Load(ctx context.Context) (map[int64]*Record, error)

	// Save writes the complete record, inserting or replacing as needed.
	Save(ctx context.Context, record *Record) error

	// Delete removes a user record. Deleting an absent record is not an error.
	Delete(ctx context.Context, userID int64) error
}

// SQLiteStore implements Store using a SQLite table of JSON documents,
// one row per user.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed user store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load retrieves every user record.
func (s *SQLiteStore) Load(ctx context.Context) (map[int64]*Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, record FROM app_users")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	records := make(map[int64]*Record)
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("unmarshalling user %d: %w", id, err)
		}
		records[id] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return records, nil
}

// Save writes the complete record, inserting or replacing as needed.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling user %d: %w", record.UserID, err)
	}

	query := `
		INSERT INTO app_users (user_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		record.UserID,
		string(doc),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving user %d: %w", record.UserID, err)
	}
	return nil
}

// Delete removes a user record.
func (s *SQLiteStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM app_users WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("deleting user %d: %w", userID, err)
	}
	return nil
}
