package history

import (
	"context"
	"time"

	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
)

// defaultRecordTimeout bounds each snapshot write so a stuck database
// cannot stall the telemetry loop's fan-out.
const defaultRecordTimeout = 2 * time.Second

// Sink adapts a Repository to the telemetry publisher's fan-out.
//
// Persistence failures are logged and swallowed: history is best-effort
// and must never interfere with the wire protocol.
type Sink struct {
	repo    Repository
	node    string
	log     supervisor.Logger
	timeout time.Duration
}

// NewSink creates a sink recording snapshots for the given node.
func NewSink(repo Repository, node string, log supervisor.Logger) *Sink {
	return &Sink{
		repo:    repo,
		node:    node,
		log:     log,
		timeout: defaultRecordTimeout,
	}
}

// PublishTelemetry implements supervisor.Sink.
func (s *Sink) PublishTelemetry(snap supervisor.State, nowMicros uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	event := supervisor.NewTelemetryEvent(snap, nowMicros)
	uptime := int64(nowMicros / 1_000_000)
	if err := s.repo.RecordSnapshot(ctx, s.node, event, uptime); err != nil {
		s.log.Warn("failed to record telemetry history", "node", s.node, "error", err)
	}
}
