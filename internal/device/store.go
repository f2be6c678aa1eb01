package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store defines the persistence interface for device records.
// Records are stored whole: Save rewrites the complete record document so a
// successful return means the durable copy matches the in-memory one.
type Store interface {
	// Load retrieves every device record, keyed by device ID.
	Load(ctx context.Context) (map[string]*Record, error)

	// Save writes the complete record, inserting or replacing as needed.
	Save(ctx context.Context, record *Record) error
}

// SQLiteStore implements Store using a SQLite table of JSON documents,
// one row per device.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed device store.
// The db parameter should be an open connection with migrations applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load retrieves every device record.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]*Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT device_id, record FROM iot_devices")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*Record)
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("unmarshalling device %s: %w", id, err)
		}
		records[id] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// Save writes the complete record, inserting or replacing as needed.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling device %s: %w", record.DeviceID, err)
	}

	query := `
		INSERT INTO iot_devices (device_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		record.DeviceID,
		string(doc),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving device %s: %w", record.DeviceID, err)
	}
	return nil
}

// Get retrieves a single record by device ID.
// Returns ErrNotFound if the device does not exist.
func (s *SQLiteStore) Get(ctx context.Context, deviceID string) (*Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM iot_devices WHERE device_id = ?", deviceID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device %s: %w", deviceID, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling device %s: %w", deviceID, err)
	}
	return &rec, nil
}
