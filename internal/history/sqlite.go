package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// SQLiteRepository implements Repository using SQLite.
//
// It stores telemetry payloads as JSON in the telemetry_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite telemetry history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordSnapshot inserts a new telemetry history row.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - nodeID: Supervisor node identifier
//   - payload: Telemetry payload as emitted on the wire (JSON-encodable)
//   - uptimeS: Boot-relative uptime at capture, in whole seconds
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) RecordSnapshot(ctx context.Context, nodeID string, payload any, uptimeS int64) error {
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}

	snapshotJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO telemetry_history (node_id, snapshot, uptime_s) VALUES (?, ?, ?)",
		nodeID,
		string(snapshotJSON),
		uptimeS,
	)
	if err != nil {
		return fmt.Errorf("inserting telemetry history: %w", err)
	}

	return nil
}

// Recent returns recent telemetry entries for a node, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - nodeID: Supervisor node identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) Recent(ctx context.Context, nodeID string, limit int) ([]Entry, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("node id is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, node_id, snapshot, uptime_s, created_at
		 FROM telemetry_history
		 WHERE node_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		nodeID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var snapshotJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.NodeID, &snapshotJSON, &entry.UptimeS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning telemetry history: %w", err)
		}

		if err := json.Unmarshal([]byte(snapshotJSON), &entry.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating telemetry history: %w", err)
	}

	return entries, nil
}

// Prune deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM telemetry_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting telemetry history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
