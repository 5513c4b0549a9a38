package history

import (
	"context"
	"time"
)

// Entry represents a single recorded telemetry snapshot.
//
// Each entry stores the full status payload as emitted on the wire. This
// provides a local audit trail even when the time-series database is
// unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// NodeID is the supervisor node the snapshot belongs to.
	NodeID string `json:"node_id"`

	// Snapshot is the decoded telemetry payload as emitted on the wire.
	Snapshot map[string]any `json:"snapshot"`

	// UptimeS is the boot-relative uptime at capture, in whole seconds.
	UptimeS int64 `json:"uptime_s"`

	// CreatedAt is the timestamp of the snapshot (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves telemetry snapshot history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// RecordSnapshot persists one telemetry snapshot.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - nodeID: Supervisor node identifier
	//   - payload: Telemetry payload as emitted on the wire (JSON-encodable)
	//   - uptimeS: Boot-relative uptime at capture, in whole seconds
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	RecordSnapshot(ctx context.Context, nodeID string, payload any, uptimeS int64) error

	// Recent returns recent snapshots for the node, ordered newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - nodeID: Supervisor node identifier
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []Entry: Ordered newest-first entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	Recent(ctx context.Context, nodeID string, limit int) ([]Entry, error)

	// Prune deletes entries older than the given duration.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
	//
	// Returns:
	//   - int64: Number of rows deleted
	//   - error: nil on success, otherwise the underlying database error
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
