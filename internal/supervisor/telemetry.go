package supervisor

import (
	"context"
	"time"
)

// DefaultTelemetryPeriod is the delay between telemetry cycles when the
// configuration does not override it.
const DefaultTelemetryPeriod = 2000 * time.Millisecond

// Sink receives each telemetry snapshot after the event has been written to
// the transport. Sinks run on the publisher goroutine, outside the store's
// critical section; a slow sink delays the next cycle but can never corrupt
// state. Failures are the sink's own to log; the publisher does not observe
// them.
type Sink interface {
	PublishTelemetry(snap State, nowMicros uint64)
}

// Publisher emits unsolicited telemetry events on a fixed-delay schedule:
// each cycle snapshots the store, writes one event line, notifies the sinks,
// then waits the full period. Processing and send latency is not
// subtracted, so the observed inter-event interval stretches under load;
// events are never emitted faster than the period.
type Publisher struct {
	store  *Store
	clock  Clock
	out    *LineWriter
	log    Logger
	period time.Duration
	sinks  []Sink
}

// NewPublisher creates a telemetry publisher. A non-positive period falls
// back to DefaultTelemetryPeriod.
func NewPublisher(store *Store, clock Clock, out *LineWriter, log Logger, period time.Duration) *Publisher {
	if period <= 0 {
		period = DefaultTelemetryPeriod
	}
	return &Publisher{
		store:  store,
		clock:  clock,
		out:    out,
		log:    log,
		period: period,
	}
}

// AddSink registers a telemetry sink. Not safe to call once Run has started.
func (p *Publisher) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// Run publishes until ctx is cancelled. This is the telemetry-publishing
// execution context; it runs for the process lifetime.
func (p *Publisher) Run(ctx context.Context) {
	for {
		p.publishOnce()

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.period):
		}
	}
}

// publishOnce takes one snapshot and fans it out.
func (p *Publisher) publishOnce() {
	snap := p.store.Snapshot()
	now := p.clock.NowMicros()

	p.out.WriteEnvelope(NewTelemetryEvent(snap, now))

	for _, s := range p.sinks {
		s.PublishTelemetry(snap, now)
	}
}
