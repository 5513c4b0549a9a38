package supervisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestLastMsgAge(t *testing.T) {
	tests := []struct {
		name string
		last uint64
		now  uint64
		want int64
	}{
		{"never seen an event", 0, 99_000_000, 0},
		{"clock behind the event", 10_000_000, 5_000_000, 0},
		{"same instant", 7_000_000, 7_000_000, 0},
		{"sub-second truncates to zero", 1_000_000, 1_999_999, 0},
		{"whole seconds floor", 1_000_000, 4_500_000, 3},
		{"exact boundary", 1_000_000, 3_000_000, 2},
		{"maximum span fits int64", 0x1, math.MaxUint64, 18_446_744_073_709},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastMsgAge(tt.last, tt.now); got != tt.want {
				t.Errorf("lastMsgAge(%d, %d) = %d, want %d", tt.last, tt.now, got, tt.want)
			}
		})
	}
}

func TestStatusFieldsWireShape(t *testing.T) {
	clock := NewMockClock(30_000_000)
	store := NewStore(clock)
	clock.Advance(65_000_000) // uptime 95s, last event 65s ago

	payload, err := json.Marshal(newStatusFields(store.Snapshot(), clock.NowMicros()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := map[string]any{
		"battery_pct":    float64(78),
		"pack_mv":        float64(11750),
		"pack_ma":        float64(-420),
		"mcu_temp_c":     36.5,
		"unread_ext":     float64(0),
		"last_msg_age_s": float64(65),
		"heltec":         "ok",
		"mcu":            "proto-0.1",
		"uptime_s":       float64(95),
	}
	for key, val := range want {
		if fields[key] != val {
			t.Errorf("field %q = %v, want %v", key, fields[key], val)
		}
	}

	sw, ok := fields["switch"].(map[string]any)
	if !ok {
		t.Fatalf("switch field missing or wrong type: %v", fields["switch"])
	}
	for _, key := range []string{"lte", "wifi", "bt", "bridge_enable", "lid_open", "charger_online"} {
		if _, present := sw[key]; !present {
			t.Errorf("switch field %q missing", key)
		}
	}
	if len(sw) != 6 {
		t.Errorf("switch has %d fields, want 6", len(sw))
	}
	if len(fields) != 10 {
		t.Errorf("status has %d fields, want 10", len(fields))
	}
}

func TestReplyIDEcho(t *testing.T) {
	tests := []struct {
		name string
		id   *string
		want string
	}{
		{"absent id omits the field", nil, `{"ok":true}`},
		{"empty id is still echoed", strPtr(""), `{"id":"","ok":true}`},
		{"id echoed verbatim", strPtr("req-7"), `{"id":"req-7","ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(okReply{ID: tt.id, OK: true})
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("payload = %s, want %s", payload, tt.want)
			}
		})
	}
}

func TestTelemetryEventShape(t *testing.T) {
	clock := NewMockClock(0)
	store := NewStore(clock)
	clock.Advance(2_000_000)

	payload, err := json.Marshal(NewTelemetryEvent(store.Snapshot(), clock.NowMicros()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if fields["event"] != "telemetry" {
		t.Errorf("event = %v, want telemetry", fields["event"])
	}
	// The status fields sit beside the event name, not nested under a key.
	if _, nested := fields["status"]; nested {
		t.Error("telemetry event must not nest fields under status")
	}
	if fields["battery_pct"] != float64(78) {
		t.Errorf("battery_pct = %v, want 78", fields["battery_pct"])
	}
	if fields["uptime_s"] != float64(2) {
		t.Errorf("uptime_s = %v, want 2", fields["uptime_s"])
	}
}

func TestSwitchEventShape(t *testing.T) {
	store := NewStore(NewMockClock(0))

	payload, err := json.Marshal(NewSwitchEvent(store.SnapshotSwitches()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"event":"switch","switch":{"lte":true,"wifi":false,"bt":true,"bridge_enable":true,"lid_open":false,"charger_online":true}}`
	if string(payload) != want {
		t.Errorf("payload = %s\nwant      %s", payload, want)
	}
}

func TestLineWriterSingleLine(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf, NewMockLogger())

	lw.WriteEnvelope(okReply{OK: true})
	lw.WriteEnvelope(okReply{ID: strPtr("a"), OK: true})

	got := buf.String()
	want := "{\"ok\":true}\n{\"id\":\"a\",\"ok\":true}\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if strings.Count(got, "\n") != 2 {
		t.Errorf("expected exactly one newline per envelope, got %q", got)
	}
}

// failWriter always reports a write error.
type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("port gone")
}

func TestLineWriterWriteFailureIsLoggedNotFatal(t *testing.T) {
	log := NewMockLogger()
	lw := NewLineWriter(failWriter{}, log)

	lw.WriteEnvelope(okReply{OK: true})

	if log.WarnCount() != 1 {
		t.Errorf("warn count = %d, want 1", log.WarnCount())
	}
}

func TestLineWriterUnencodableEnvelopeIsDropped(t *testing.T) {
	var buf bytes.Buffer
	log := NewMockLogger()
	lw := NewLineWriter(&buf, log)

	lw.WriteEnvelope(map[string]any{"bad": func() {}})

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	log.mu.Lock()
	errs := len(log.errs)
	log.mu.Unlock()
	if errs != 1 {
		t.Errorf("error count = %d, want 1", errs)
	}
}
