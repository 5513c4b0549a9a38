// Package history persists telemetry snapshots to SQLite.
//
// Every telemetry event the supervisor emits on the wire is also recorded
// locally, giving operators a queryable audit trail that survives restarts
// and works without any network connectivity.
//
// The package has three parts:
//   - Repository: the storage interface (record, read newest-first, prune)
//   - SQLiteRepository: the SQLite implementation backed by the
//     telemetry_history table
//   - Sink: an adapter plugging the repository into the telemetry
//     publisher's fan-out
//
// Retention is enforced by calling Prune periodically; see the history
// section of config.yaml for the retention window.
package history
