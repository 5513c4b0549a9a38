package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer so the test can read while the publisher
// goroutine writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// MockSink records every telemetry fan-out call.
type MockSink struct {
	mu    sync.Mutex
	snaps []State
	times []uint64
}

func (s *MockSink) PublishTelemetry(snap State, nowMicros uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	s.times = append(s.times, nowMicros)
}

func (s *MockSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func TestPublisherEmitsTelemetryEvents(t *testing.T) {
	clock := NewMockClock(1_000_000)
	store := NewStore(clock)
	out := &syncBuffer{}
	sink := &MockSink{}

	pub := NewPublisher(store, clock, NewLineWriter(out, NewMockLogger()), NewMockLogger(), 5*time.Millisecond)
	pub.AddSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()
	<-done

	scanner := bufio.NewScanner(bytes.NewReader(out.Bytes()))
	var events int
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d not valid JSON: %v", events+1, err)
		}
		if ev["event"] != "telemetry" {
			t.Errorf("line %d event = %v, want telemetry", events+1, ev["event"])
		}
		if ev["battery_pct"] != float64(78) {
			t.Errorf("line %d battery_pct = %v, want 78", events+1, ev["battery_pct"])
		}
		events++
	}

	if events < 2 {
		t.Errorf("published %d events in 40ms at 5ms period, want at least 2", events)
	}
	if sink.Count() != events {
		t.Errorf("sink saw %d snapshots, wire saw %d events", sink.Count(), events)
	}
}

func TestPublisherStopsOnCancel(t *testing.T) {
	clock := NewMockClock(0)
	store := NewStore(clock)
	out := &syncBuffer{}

	pub := NewPublisher(store, clock, NewLineWriter(out, NewMockLogger()), NewMockLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancellation")
	}

	// The first cycle fires before the wait, so exactly one event exists.
	lines := bytes.Count(out.Bytes(), []byte("\n"))
	if lines != 1 {
		t.Errorf("wrote %d events before stopping, want 1", lines)
	}
}

func TestPublisherDefaultPeriod(t *testing.T) {
	pub := NewPublisher(nil, nil, nil, nil, 0)
	if pub.period != DefaultTelemetryPeriod {
		t.Errorf("period = %v, want %v", pub.period, DefaultTelemetryPeriod)
	}
	if DefaultTelemetryPeriod != 2*time.Second {
		t.Errorf("DefaultTelemetryPeriod = %v, want 2s", DefaultTelemetryPeriod)
	}
}

func TestPublisherSinkRunsAfterWireWrite(t *testing.T) {
	clock := NewMockClock(9_000_000)
	store := NewStore(clock)
	out := &syncBuffer{}
	sink := &MockSink{}

	pub := NewPublisher(store, clock, NewLineWriter(out, NewMockLogger()), NewMockLogger(), time.Hour)
	pub.AddSink(sink)

	pub.publishOnce()

	if sink.Count() != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.Count())
	}
	sink.mu.Lock()
	snap, now := sink.snaps[0], sink.times[0]
	sink.mu.Unlock()

	if snap.BatteryPct != 78 {
		t.Errorf("sink snapshot BatteryPct = %d, want 78", snap.BatteryPct)
	}
	if now != 9_000_000 {
		t.Errorf("sink timestamp = %d, want 9000000", now)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"event":"telemetry"`)) {
		t.Error("wire write missing telemetry event")
	}
}
